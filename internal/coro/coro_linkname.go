//go:build linkname

package coro

import (
	_ "unsafe"
)

type coro struct{}

//go:linkname newcoro runtime.newcoro
func newcoro(func(*coro)) *coro

//go:linkname coroswitch runtime.coroswitch
func coroswitch(*coro)

//go:linkname coroexit runtime.coroexit
func coroexit(*coro)

// Coro is a stackful context-switch primitive: a goroutine with explicit,
// cheap switching. It rides on the Go runtime's own coroutine machinery
// (the same mechanism that powers iter.Pull) via go:linkname, which makes
// Start/Next/Yield roughly an order of magnitude cheaper than a portable
// switch and gives each Coro its own runtime-managed, growable, guarded
// stack for free: there is no hand-rolled mmap/mprotect guard page here
// because the goroutine stack already traps overflow the same way.
//
// This is the cheap, non-portable half of the two interchangeable context
// implementations; coro_nolinkname.go is the portable fallback.
type Coro struct {
	coro *coro
}

// Start begins running f in a new underlying goroutine. It must be called
// exactly once per Coro. Start returns once f calls Yield or Finish; f must
// call Finish before returning (a bare return without Finish first is a
// contract violation, caught by the panic below).
//
//go:norace
func (c *Coro) Start(f func()) {
	c.coro = newcoro(func(*coro) {
		f()
		panic("coro: f returned without calling Finish")
	})
	coroswitch(c.coro)
}

// Next must be called from outside the coroutine (i.e. from the fiber that
// most recently called Start or had Next called on it). It resumes the
// coroutine until its next Yield or until it finishes.
//
//go:norace
func (c *Coro) Next() {
	coroswitch(c.coro)
}

// Yield must be called from inside the coroutine. It suspends the
// coroutine, returning control to whichever goroutine called Start or Next.
//
//go:norace
func (c *Coro) Yield() {
	coroswitch(c.coro)
}

// Finish must be called from inside the coroutine. It terminates the
// coroutine permanently and returns control to the caller of Start/Next.
// Deferred calls on the coroutine's stack are not run — callers that need
// cleanup must run it before calling Finish (or before returning from f).
//
//go:norace
func (c *Coro) Finish() {
	coroexit(c.coro)
	panic("coro: unreachable after coroexit")
}
