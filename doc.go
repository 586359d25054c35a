// Package fiber is the public facade of a stackful-coroutine runtime for
// Linux: straight-line, blocking-style application code ("fibers")
// multiplexed over a small pool of kernel threads, with I/O readiness
// driven by an edge-triggered notifier and time by a hashed timer wheel.
//
// Call Init (or rely on the defaults) to size the worker pool, Go to spawn
// a fiber, and Run to drive worker 0's loop on the calling goroutine. The
// engine itself -- fibers, workers, the scheduler, the I/O readiness
// manager, the timer wheel, and the fiber-aware sync primitives -- lives in
// github.com/inory/fiber/fiberruntime; this package re-exports the surface
// described in the runtime's external interface.
package fiber
