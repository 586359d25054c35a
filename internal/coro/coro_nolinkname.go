//go:build !linkname

package coro

import (
	_ "unsafe"
)

// Coro is the portable implementation of Coro from coro_linkname.go. It
// avoids go:linkname entirely, at the cost of a real goroutine switch (via
// channel handoff) on every Start/Next/Yield instead of the runtime's cheap
// internal coroutine switch.
type Coro struct {
	runWaitCh chan struct{}
}

//go:norace
func (c *Coro) Start(f func()) {
	c.runWaitCh = make(chan struct{})
	go f()
	<-c.runWaitCh
}

//go:norace
func (c *Coro) Next() {
	c.runWaitCh <- struct{}{}
	<-c.runWaitCh
}

//go:norace
func (c *Coro) Yield() {
	c.runWaitCh <- struct{}{}
	<-c.runWaitCh
}

//go:norace
func (c *Coro) Finish() {
	c.runWaitCh <- struct{}{}
	select {}
	panic("wtf")
}
