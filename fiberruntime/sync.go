package fiberruntime

import (
	"sync/atomic"
	"time"
)

// Mutex is a fiber-aware mutual exclusion lock: it blocks the calling
// *fiber*, not the underlying OS thread, per §4.8 and §5's "FiberMutex
// protects fiber-level critical sections; it does not block OS threads."
type Mutex struct {
	locked  atomic.Bool
	owner   atomic.Int64 // fiber id of the current holder, 0 = none
	waiters *WaitQueue
}

// NewMutex returns an unlocked mutex.
func NewMutex() *Mutex {
	return &Mutex{waiters: NewWaitQueue()}
}

// Lock blocks the calling fiber until the mutex is acquired.
func (m *Mutex) Lock() {
	for {
		if m.locked.CompareAndSwap(false, true) {
			m.setOwner()
			return
		}
		m.waiters.Wait()
		// re-check on wake, per §4.8 -- fairness is not guaranteed, a
		// woken waiter races the next TryLock caller.
	}
}

// TryLock attempts to acquire the mutex without blocking.
func (m *Mutex) TryLock() bool {
	if m.locked.CompareAndSwap(false, true) {
		m.setOwner()
		return true
	}
	return false
}

func (m *Mutex) setOwner() {
	id := int64(0)
	if f := Current(); f != nil {
		id = f.ID
	}
	m.owner.Store(id)
}

// Unlock releases the mutex. Per §9's resolved open question, ownership is
// always checked: unlocking a mutex the caller does not hold returns
// KindInvalidState rather than silently succeeding.
func (m *Mutex) Unlock() error {
	var holder int64
	if f := Current(); f != nil {
		holder = f.ID
	}
	if m.owner.Load() != holder {
		return newError(KindInvalidState, "Mutex.Unlock", nil)
	}
	m.owner.Store(0)
	if !m.locked.CompareAndSwap(true, false) {
		return newError(KindInvalidState, "Mutex.Unlock", nil)
	}
	m.waiters.NotifyOne()
	return nil
}

// Condition is a fiber-aware condition variable used together with a
// Mutex, per §4.8.
type Condition struct {
	waiters *WaitQueue
}

// NewCondition returns a new condition variable.
func NewCondition() *Condition {
	return &Condition{waiters: NewWaitQueue()}
}

// Wait releases mu, parks the calling fiber, and reacquires mu before
// returning.
func (c *Condition) Wait(mu *Mutex) {
	if err := mu.Unlock(); err != nil {
		bug("Condition.Wait: %v", err)
	}
	c.waiters.Wait()
	mu.Lock()
}

// WaitFor is Wait with a deadline. It returns true if woken by Notify*,
// false if the timeout elapsed first. Exactly one of the timer callback and
// the notifying fiber observes "I woke this waiter": the race is resolved
// by a CAS on a per-call woken flag, per §4.8 and §5's cancellation model.
func (c *Condition) WaitFor(mu *Mutex, timeout time.Duration) bool {
	var woken atomic.Bool
	f := Current()
	if f == nil {
		bug("Condition.WaitFor called outside a fiber")
	}

	timer := ThisWorkerTimerWheel().AddTimer(timeout, false, func() {
		if woken.CompareAndSwap(false, true) {
			scheduleWoken(f)
		}
	})

	if err := mu.Unlock(); err != nil {
		bug("Condition.WaitFor: %v", err)
	}
	c.waiters.q.PushBack(f)
	f.BlockYield()

	timedOut := !woken.CompareAndSwap(false, true)
	if !timedOut {
		timer.Cancel()
	}
	mu.Lock()
	return !timedOut
}

// NotifyOne wakes one waiter, if any.
func (c *Condition) NotifyOne() bool { return c.waiters.NotifyOne() }

// NotifyAll wakes every waiter.
func (c *Condition) NotifyAll() int { return c.waiters.NotifyAll() }

// WaitGroup is a fiber-aware wait group, per §4.8.
type WaitGroup struct {
	count   atomic.Int64
	waiters *WaitQueue
}

// NewWaitGroup returns a wait group with counter 0.
func NewWaitGroup() *WaitGroup {
	return &WaitGroup{waiters: NewWaitQueue()}
}

// Add adjusts the counter by delta. If the result would go negative, the
// add is rolled back and an InvalidState error is returned, per §4.8. When
// the counter transitions to exactly zero, every waiter is notified.
func (wg *WaitGroup) Add(delta int64) error {
	n := wg.count.Add(delta)
	if n < 0 {
		wg.count.Add(-delta)
		runtimeLog().Warn("WaitGroup.Add would drive counter negative", "delta", delta)
		return newError(KindInvalidState, "WaitGroup.Add", nil)
	}
	if n == 0 {
		wg.waiters.NotifyAll()
	}
	return nil
}

// Done is Add(-1).
func (wg *WaitGroup) Done() error { return wg.Add(-1) }

// Wait blocks the calling fiber until the counter reaches zero.
func (wg *WaitGroup) Wait() {
	for wg.count.Load() > 0 {
		wg.waiters.Wait()
	}
}

// Count returns the current counter value.
func (wg *WaitGroup) Count() int64 { return wg.count.Load() }
