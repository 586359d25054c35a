// Package fiberruntime implements the stackful-coroutine engine: fibers,
// their worker pool, edge-triggered I/O readiness, a hashed timer wheel,
// and the fiber-aware synchronization primitives built on top of a
// lock-free Michael & Scott queue.
//
// The root github.com/inory/fiber package is the public facade; this
// package is where the four tightly coupled subsystems the engine's design
// actually lives.
package fiberruntime
