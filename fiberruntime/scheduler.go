package fiberruntime

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

type schedulerState int32

const (
	schedulerNotRunning schedulerState = iota
	schedulerRunning
	schedulerStopped
)

// Scheduler owns a fixed pool of Workers and routes newly spawned fibers to
// one of them, per §4.5. There is deliberately no global min-search over
// load: first-time placement is `hash(trace_id) mod N`, a deterministic
// routing chosen for reproducible traces over a least-loaded policy (the
// source tried least-loaded and backed it out -- see DESIGN.md).
type Scheduler struct {
	cfg     Config
	workers []*Worker
	state   atomic.Int32
	group   errgroup.Group
	runOnce sync.Once
}

// NewScheduler constructs N workers from cfg without starting them.
func NewScheduler(cfg Config) *Scheduler {
	cfg = cfg.withDefaults()
	s := &Scheduler{cfg: cfg}
	s.workers = make([]*Worker, cfg.NumConsumers)
	for i := range s.workers {
		s.workers[i] = newWorker(i, cfg)
	}
	return s
}

// WorkerCount returns N.
func (s *Scheduler) WorkerCount() int { return len(s.workers) }

// Run starts workers 1..N-1 on spawned goroutines (each locked to its own OS
// thread) and drives worker 0's loop on the calling goroutine, per §3's
// "worker 0 runs on the main thread" rule. It returns once Stop is called
// and every worker has drained.
func (s *Scheduler) Run() {
	s.runOnce.Do(func() {
		s.state.Store(int32(schedulerRunning))
		for i := 1; i < len(s.workers); i++ {
			w := s.workers[i]
			s.group.Go(func() error {
				w.loop()
				return nil
			})
		}
	})
	s.workers[0].loop()
	_ = s.group.Wait()
}

// Stop transitions the scheduler to STOPPED and joins all workers, letting
// each drain its ready queue to completion first (§4.4).
func (s *Scheduler) Stop() {
	s.state.Store(int32(schedulerStopped))
	for _, w := range s.workers {
		close(w.stopc)
		w.io.interrupt()
	}
	for _, w := range s.workers {
		<-w.stopped
		w.io.Close()
	}
}

// Schedule places f on a worker's ready queue, per §4.5. A fiber that is
// already pinned must return to its own worker; a never-run fiber is routed
// by trace-hash. If the scheduler is not RUNNING, the fiber is dropped with
// a warning -- callers are responsible for lifecycle ordering.
func (s *Scheduler) Schedule(f *Fiber) {
	if schedulerState(s.state.Load()) != schedulerRunning {
		runtimeLog().Warn("schedule on non-running scheduler dropped", "fiber", f.ID)
		return
	}
	if f.State() == StateDone {
		return // invariant 1 of §8: scheduling a DONE fiber is a no-op
	}

	if cid := f.consumerID.Load(); cid >= 0 {
		s.workers[cid].schedule(f)
		return
	}

	h := newFnv64()
	h.HashInt(f.traceID)
	idx := int(h.Sum() % uint64(len(s.workers)))
	s.workers[idx].schedule(f)
}

// Go spawns fn as a new SCHEDULED fiber with the given trace id and places
// it on a worker immediately. Mirrors §6's `go(fn, stack_size)`.
func (s *Scheduler) Go(traceID uint64, fn func()) *Fiber {
	f := newFiber(fn, RunModeScheduled, traceID)
	s.Schedule(f)
	return f
}

// Create constructs a fiber in READY state without scheduling it, for
// RunModeManual callers that drive Resume themselves. Mirrors §6's
// `create(fn, stack_size)`.
func (s *Scheduler) Create(fn func()) *Fiber {
	return newFiber(fn, RunModeManual, 0)
}

// ThisWorkerIOManager returns the I/O readiness manager owned by the worker
// the calling fiber is pinned to. Panics (via bug) if called outside a
// fiber, since fd contexts are strictly worker-local (§4.6).
func ThisWorkerIOManager() *IOManager {
	return thisWorker().io
}

// ThisWorkerTimerWheel returns the timer wheel owned by the worker the
// calling fiber is pinned to.
func ThisWorkerTimerWheel() *TimerWheel {
	return thisWorker().timer
}

func thisWorker() *Worker {
	f := Current()
	if f == nil || f.worker == nil {
		bug("this-worker accessor called outside a running fiber")
	}
	return f.worker
}

// scheduleWoken re-enqueues a fiber that a WaitQueue just popped. The fiber
// is necessarily already pinned (it could only have parked after running at
// least once), so this always targets its own worker directly -- no
// trace-hash routing, no scheduler lookup required.
func scheduleWoken(f *Fiber) {
	if f.worker == nil {
		bug("woken fiber %d has no owning worker", f.ID)
	}
	f.worker.schedule(f)
}

var defaultScheduler atomic.Pointer[Scheduler]

// DefaultScheduler returns the process-wide singleton scheduler described in
// §6 (`scheduler()`), constructing it from cfg on first use.
func DefaultScheduler(cfg Config) *Scheduler {
	if s := defaultScheduler.Load(); s != nil {
		return s
	}
	s := NewScheduler(cfg)
	if defaultScheduler.CompareAndSwap(nil, s) {
		return s
	}
	return defaultScheduler.Load()
}
