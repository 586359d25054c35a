package fiberruntime

import "github.com/inory/fiber/fiberruntime/lockfree"

// WaitQueue is a typed parking lot of fibers blocked on one condition: a
// thin wrapper over the lock-free FIFO (C1) carrying fiber handles, per
// §4.2. Every fiber-aware primitive in sync.go/channel.go/ioready.go is
// built on one or more of these.
type WaitQueue struct {
	q *lockfree.Queue[*Fiber]
}

// NewWaitQueue returns an empty wait queue.
func NewWaitQueue() *WaitQueue {
	return &WaitQueue{q: lockfree.New[*Fiber]()}
}

// Wait parks the calling fiber on the queue and blocks it. It must be
// called from inside a fiber; callers are expected to have already released
// whatever lock guards the condition they're waiting on.
func (wq *WaitQueue) Wait() {
	f := Current()
	if f == nil {
		bug("WaitQueue.Wait called outside a fiber")
	}
	wq.q.PushBack(f)
	f.BlockYield()
}

// NotifyOne pops one parked fiber and asks its scheduler to re-enqueue it.
// It reports whether anyone was woken. Per §4.2, the woken fiber never runs
// inline -- it only becomes READY again, re-entering through its worker's
// normal loop.
func (wq *WaitQueue) NotifyOne() bool {
	f, ok := wq.q.PopFront()
	if !ok {
		return false
	}
	scheduleWoken(f)
	return true
}

// NotifyAll wakes every parked fiber and returns how many were woken.
func (wq *WaitQueue) NotifyAll() int {
	n := 0
	for wq.NotifyOne() {
		n++
	}
	return n
}

// Len reports the (approximate) number of fibers currently parked.
func (wq *WaitQueue) Len() int64 { return wq.q.Size() }
