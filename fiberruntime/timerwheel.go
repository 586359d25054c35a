package fiberruntime

import (
	"sync/atomic"
	"time"

	"github.com/inory/fiber/fiberruntime/lockfree"
)

// TimerHandle lets a caller cancel a timer it added.
type TimerHandle struct {
	t *timerNode
}

// Cancel flips the timer's cancelled flag. Per §4.7, cancellation is a
// one-way atomic flag, not a removal -- the wheel drops it the next time it
// would otherwise fire.
func (h TimerHandle) Cancel() {
	h.t.cancelled.Store(true)
}

// Refresh cancels h and installs a fresh timer with the same callback and
// repeat flag but a new duration, per original_source's timer.h refresh.
// Nothing inside the runtime calls it; it is there for callers that re-arm
// a timer.
func (w *TimerWheel) Refresh(h TimerHandle, d time.Duration) TimerHandle {
	h.Cancel()
	return w.AddTimer(d, h.t.repeat, h.t.cb)
}

// TriggerNow fires h's callback immediately and cancels it, letting tests
// force-expire a timer deterministically instead of sleeping past its
// duration. A no-op if h was already cancelled.
func (w *TimerWheel) TriggerNow(h TimerHandle) {
	if h.t.cancelled.CompareAndSwap(false, true) {
		h.t.cb()
	}
}

type timerNode struct {
	ms        int64
	ticks     int64
	rotations int64
	slot      int
	repeat    bool
	cancelled atomic.Bool
	cb        func()
}

// TimerWheel is a single hashed wheel of S slots of tickMs each, per §4.7.
// It is explicitly not a priority heap: a heap buys O(log n) insertion that
// this design does not need, at the cost of a global lock on every
// insert/pop; a hashed wheel gets O(1) insertion and O(1)-amortized tick
// processing, and the only cross-thread entry point (AddTimer) is already
// lock-free via the pending queue.
//
// Grounded on the original's hierarchical_timer_wheel.h via
// original_source/include/timer.h, adapted to route foreign-thread
// insertions through a lock-free pending queue (C1) instead of a mutex.
type TimerWheel struct {
	slots   []*lockfree.Queue[*timerNode]
	tickMs  int64
	current atomic.Int64 // current slot index, monotonically advancing mod len(slots)

	pending *lockfree.Queue[*timerNode]
}

func newTimerWheel(numSlots int, tick time.Duration) *TimerWheel {
	w := &TimerWheel{
		slots:   make([]*lockfree.Queue[*timerNode], numSlots),
		tickMs:  tick.Milliseconds(),
		pending: lockfree.New[*timerNode](),
	}
	for i := range w.slots {
		w.slots[i] = lockfree.New[*timerNode]()
	}
	if w.tickMs <= 0 {
		w.tickMs = 1
	}
	return w
}

// AddTimer schedules cb to run per §4.7's add_timer. d is rounded down to a
// whole number of ticks (at least one), and cb runs no earlier than that
// many ticks later, which can be sooner than d when d is not a multiple of
// the tick. Safe
// to call from any goroutine, including a different worker than the one
// that owns this wheel -- the insertion goes through the lock-free pending
// queue, which is the wheel's only cross-thread-safe surface.
func (w *TimerWheel) AddTimer(d time.Duration, repeat bool, cb func()) TimerHandle {
	ms := d.Milliseconds()
	ticks := ms / w.tickMs
	if ticks < 1 {
		ticks = 1
	}
	n := &timerNode{
		ms:     ms,
		ticks:  ticks,
		repeat: repeat,
		cb:     cb,
	}
	w.pending.PushBack(n)
	return TimerHandle{t: n}
}

// drainPending moves newly added timers into their target slots, computing
// slot and rotations the way §4.7 step 1 specifies.
func (w *TimerWheel) drainPending(maxBatch int) {
	for i := 0; i < maxBatch; i++ {
		n, ok := w.pending.PopFront()
		if !ok {
			return
		}
		w.place(n)
	}
}

func (w *TimerWheel) place(n *timerNode) {
	s := len(w.slots)
	n.rotations = n.ticks / int64(s)
	n.slot = int((w.current.Load() + n.ticks) % int64(s))
	w.slots[n.slot].PushBack(n)
}

// Tick advances the wheel by one tick, per §4.7's tick: drain pending,
// process the current slot, advance. Callbacks run synchronously on the
// calling (worker) goroutine, and must be short and non-blocking -- the
// typical callback marks a flag and notifies a wait queue.
func (w *TimerWheel) tick() {
	const pendingBatch = 256
	w.drainPending(pendingBatch)

	slotIdx := int(w.current.Load() % int64(len(w.slots)))
	slot := w.slots[slotIdx]

	var requeue []*timerNode
	for {
		n, ok := slot.PopFront()
		if !ok {
			break
		}
		if n.cancelled.Load() {
			continue
		}
		if n.rotations > 0 {
			n.rotations--
			requeue = append(requeue, n)
			continue
		}
		n.cb()
		if n.repeat && !n.cancelled.Load() {
			w.place(n)
		}
	}
	for _, n := range requeue {
		slot.PushBack(n)
	}

	w.current.Add(1)
}
