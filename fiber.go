package fiber

import (
	"sync"
	"time"

	"github.com/inory/fiber/fiberruntime"
)

// Handle is a reference to a fiber, returned by Go and Create. Its zero
// value is not usable.
type Handle = fiberruntime.Fiber

var (
	schedOnce sync.Once
	sched     *fiberruntime.Scheduler
)

// Init constructs the process-wide scheduler from cfg. It must be called
// before Go/Create/Run if the defaults in DefaultConfig aren't wanted;
// calling it more than once, or after the scheduler has already been used,
// has no effect.
func Init(cfg Config) {
	schedOnce.Do(func() {
		sched = fiberruntime.NewScheduler(cfg)
	})
}

func scheduler() *fiberruntime.Scheduler {
	schedOnce.Do(func() {
		sched = fiberruntime.NewScheduler(DefaultConfig())
	})
	return sched
}

// Go spawns fn as a new fiber, routed to a worker by trace-hash, and
// schedules it immediately. Mirrors spec §6's `go(fn, stack_size=default)`.
func Go(fn func()) *Handle {
	return scheduler().Go(fiberruntime.NewTraceID(), fn)
}

// GoTrace is Go with an explicit trace id, for callers that want fibers
// correlated to the same upstream request routed to the same worker.
func GoTrace(traceID uint64, fn func()) *Handle {
	return scheduler().Go(traceID, fn)
}

// Create produces a fiber handle in READY state without scheduling it, for
// manual driving via Resume. Mirrors spec §6's `create(fn, stack_size)`.
func Create(fn func()) *Handle {
	return scheduler().Create(fn)
}

// Resume manually drives handle. Only meaningful for RunModeManual handles
// produced by Create; SCHEDULED fibers are driven by their worker.
func Resume(handle *Handle) {
	handle.Resume()
}

// Current returns the fiber executing on the calling goroutine, or nil.
func Current() *Handle {
	return fiberruntime.Current()
}

// Yield cooperatively suspends the calling fiber; its owning worker
// re-enqueues it at the tail of the ready queue.
func Yield() {
	f := Current()
	if f == nil {
		return
	}
	f.Yield()
}

// Sleep parks the calling fiber, driven by the owning worker's timer wheel,
// for at least d rounded down to whole timer ticks (minimum one tick).
func Sleep(d time.Duration) {
	f := Current()
	if f == nil {
		return
	}
	f.Sleep(d)
}

// Run drives worker 0's loop on the calling goroutine and every other
// worker on its own spawned, OS-thread-pinned goroutine. It returns once
// Stop has been called and every worker has drained.
func Run() {
	scheduler().Run()
}

// Stop transitions the scheduler to STOPPED and joins all workers.
func Stop() {
	scheduler().Stop()
}

// WorkerCount returns the configured worker count N.
func WorkerCount() int {
	return scheduler().WorkerCount()
}
