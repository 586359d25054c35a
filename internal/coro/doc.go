// Package coro implements the context-switch substrate for a fiber: the
// private "stack" a fiber runs on and the primitive that jumps between it
// and whichever goroutine resumed it.
//
// Two interchangeable implementations exist, selected by the `linkname`
// build tag:
//
//   - default (coro_nolinkname.go): a portable implementation backed by a
//     real goroutine and an unbuffered channel handoff.
//   - `-tags linkname` (coro_linkname.go): a go:linkname-based implementation
//     riding on the Go runtime's own coroutine switch (runtime.newcoro /
//     coroswitch / coroexit), roughly an order of magnitude cheaper.
//
// Both give the fiber layer (fiberruntime.Fiber) the same three operations:
// Start, Next (called from the resumer), and Yield/Finish (called from
// inside the coroutine).
package coro
