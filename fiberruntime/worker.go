package fiberruntime

import (
	"runtime"
	"time"

	"github.com/inory/fiber/fiberruntime/lockfree"
)

// Worker is one OS thread, owning a ready queue, an I/O readiness manager,
// and a timer wheel, per §3's Worker data model and §4.4's consumer loop.
// Worker 0 runs its loop on the caller of Scheduler.Run; workers 1..N-1 each
// get their own spawned goroutine pinned to its own OS thread.
type Worker struct {
	id int

	ready *lockfree.Queue[*Fiber]
	io    *IOManager
	timer *TimerWheel

	stopc     chan struct{} // closed by Stop
	stopped   chan struct{} // closed once the loop has fully drained
	tickEvery time.Duration
}

func newWorker(id int, cfg Config) *Worker {
	w := &Worker{
		id:        id,
		ready:     lockfree.New[*Fiber](),
		stopc:     make(chan struct{}),
		stopped:   make(chan struct{}),
		tickEvery: cfg.TimerTick,
	}
	w.io = newIOManager(w, cfg.EpollBatch)
	w.timer = newTimerWheel(cfg.TimerSlots, cfg.TimerTick)
	return w
}

// schedule places f on this worker's ready queue, transitioning it back to
// READY (from SUSPENDED or BLOCKED -- both are implicitly READY once
// re-enqueued, per §3).
func (w *Worker) schedule(f *Fiber) {
	f.state.Store(int32(StateReady))
	w.ready.PushBack(f)
}

// loop is the consumer loop of §4.4: pop, resume, reschedule if SUSPENDED,
// otherwise let whatever parked the fiber (wait queue, fd context, timer)
// hold the only remaining reference.
func (w *Worker) loop() {
	defer close(w.stopped)

	// LockOSThread gives this goroutine a stable OS-thread identity for the
	// lifetime of the worker, matching "one OS thread owns a ready queue, an
	// I/O poller, a timer wheel" (§3) -- the readiness manager's epoll fd and
	// the timer wheel are only ever touched from this one thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	runtimeLog().Debug("worker started", "worker", w.id)
	defer runtimeLog().Debug("worker stopped", "worker", w.id)

	lastTick := time.Now()
	for {
		select {
		case <-w.stopc:
			w.drain()
			return
		default:
		}

		task, ok := w.ready.PopFront()
		if !ok {
			// Nothing runnable: let the I/O poller block for up to one tick
			// so we still make timely progress on timers and readiness.
			budget := w.tickEvery - time.Since(lastTick)
			if budget < 0 {
				budget = 0
			}
			w.io.processEvents(budget)
			if time.Since(lastTick) >= w.tickEvery {
				w.timer.tick()
				lastTick = time.Now()
			}
			continue
		}

		task.worker = w
		task.pinTo(w)
		task.Resume()

		switch task.State() {
		case StateSuspended:
			w.ready.PushBack(task)
		case StateBlocked, StateDone:
			// A wait queue, fd context, or timer already owns the
			// reference, or the fiber is finished and owned by nothing.
		}

		if time.Since(lastTick) >= w.tickEvery {
			w.io.processEvents(0)
			w.timer.tick()
			lastTick = time.Now()
		}
	}
}

// drain resumes every fiber still sitting in the ready queue to completion
// before the worker's thread exits, per §4.4's stop contract: this prevents
// leaking half-run fibers that hold external resources (open fds, locked
// mutexes).
func (w *Worker) drain() {
	for {
		task, ok := w.ready.PopFront()
		if !ok {
			return
		}
		for task.State() != StateDone {
			task.worker = w
			task.pinTo(w)
			task.Resume()
			if task.State() == StateBlocked {
				// Parked on something that will never fire once the
				// worker is stopping; nothing more we can safely do for
				// it without violating the "never drive past DONE
				// incorrectly" invariant, so drop it the way schedule()
				// drops fibers that arrive to a stopped scheduler.
				break
			}
		}
	}
}
