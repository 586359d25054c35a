package fiberruntime

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/inory/fiber/internal/coro"
	"github.com/inory/fiber/internal/gls"
)

// State is a Fiber's position in the state machine of spec §3: READY ->
// RUNNING (resume) -> SUSPENDED (yield) or BLOCKED (block_yield) -> RUNNING
// (re-resume), or RUNNING -> DONE (entry returned). SUSPENDED/BLOCKED ->
// READY happens implicitly whenever something re-enqueues the fiber.
type State int32

const (
	StateReady State = iota
	StateRunning
	StateSuspended
	StateBlocked
	StateDone
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateBlocked:
		return "blocked"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// RunMode selects who drives a Fiber's resume calls.
type RunMode int

const (
	// RunModeScheduled fibers are driven by a Worker's loop.
	RunModeScheduled RunMode = iota
	// RunModeManual fibers are driven by explicit caller Resume calls and
	// are never placed on a ready queue.
	RunModeManual
)

var nextFiberID atomic.Int64

// Fiber is a stackful coroutine: a private stack (delegated to internal/coro,
// which rides the Go runtime's own goroutine machinery rather than hand-rolled
// assembly or ucontext), a state, an identity, and an owning worker. See §3.
type Fiber struct {
	ID      int64
	traceID uint64
	runMode RunMode

	state   atomic.Int32
	started atomic.Bool

	// consumerID is -1 until the fiber first runs; from then on it is
	// pinned, per §3's "consumer affinity" and §5's "cross-worker
	// rescheduling of a pinned fiber ... must assert".
	consumerID atomic.Int32
	worker     *Worker

	// parent records who resumed this fiber (nil when that was not a
	// fiber). It is bookkeeping only: Resume sets it and nothing reads it;
	// yield/block_yield return control to the resumer through coro itself.
	parent *Fiber

	entry func()
	coro  coro.Coro

	panicVal   any
	panicStack []byte
}

func newFiber(entry func(), mode RunMode, traceID uint64) *Fiber {
	f := &Fiber{
		ID:      nextFiberID.Add(1),
		traceID: traceID,
		runMode: mode,
		entry:   entry,
	}
	f.state.Store(int32(StateReady))
	f.consumerID.Store(-1)
	return f
}

// State returns the fiber's current state. Safe to call from any goroutine.
func (f *Fiber) State() State { return State(f.state.Load()) }

// ConsumerID returns the id of the worker this fiber is pinned to, or -1 if
// it has never run.
func (f *Fiber) ConsumerID() int32 { return f.consumerID.Load() }

// Current returns the fiber executing on the calling goroutine, or nil if
// the caller is not running inside a fiber. Mirrors §6's `current() ->
// handle`.
func Current() *Fiber {
	v, ok := gls.Get()
	if !ok {
		return nil
	}
	return v.(*Fiber)
}

// pinTo establishes or verifies this fiber's consumer affinity. A mismatch
// is the "scheduled to the wrong worker" bug §7 calls out as fatal.
func (f *Fiber) pinTo(w *Worker) {
	if f.consumerID.CompareAndSwap(-1, int32(w.id)) {
		f.worker = w
		return
	}
	if f.consumerID.Load() != int32(w.id) {
		bug("fiber %d pinned to worker %d, resumed on worker %d", f.ID, f.consumerID.Load(), w.id)
	}
}

// Resume drives the fiber from READY (or a just-woken SUSPENDED/BLOCKED)
// into RUNNING, returning control to the caller once the fiber yields,
// blocks, or finishes. It implements §4.3's resume/context_swap pair:
// internal/coro supplies the actual stack switch, Resume supplies the
// bookkeeping (parent link, state) around it. Current-fiber registration
// happens in run, on f's own goroutine -- see its comment.
func (f *Fiber) Resume() {
	if f.State() == StateDone {
		runtimeLog().Warn("resume of done fiber ignored", "fiber", f.ID)
		return
	}

	// Current() is read here, on the caller's own goroutine, before the
	// switch: f's body runs on a distinct goroutine of its own (both Coro
	// backends spawn one), so f.parent must be captured now rather than
	// after the switch, when this goroutine's identity hasn't changed but
	// f's has come and gone.
	f.parent = Current()
	f.state.Store(int32(StateRunning))

	if !f.started.Swap(true) {
		f.coro.Start(f.run)
	} else {
		f.coro.Next()
	}

	if f.State() == StateDone && f.panicVal != nil {
		fiberLogger(runtimeLog(), f).Error("fiber entry panicked",
			"panic", fmt.Sprint(f.panicVal), "stack", string(f.panicStack))
	}
}

// run is the trampoline the coroutine starts on. It executes on f's own
// dedicated goroutine (internal/coro's Start spawns or coroswitches into a
// distinct goroutine for every Coro), so gls.Set(f) belongs here, not in
// Resume: Resume runs on the caller's goroutine, which is never the one
// Current() needs to resolve to while f's body is running.
//
// run also owns the other half of the Coro contract: every exit path -- a
// clean return from f.entry or a recovered panic -- must call f.coro.Finish
// before this goroutine's frame unwinds. Neither Coro backend can detect a
// bare `return` from the spawned goroutine on its own (the portable backend
// would block forever on its handoff channel; see internal/coro), so run is
// responsible for calling Finish explicitly on every path, matching the
// teacher's goroutineEntrypoint/exitpoint pair in gosimruntime/runtime.go.
func (f *Fiber) run() {
	gls.Set(f)
	defer func() {
		if r := recover(); r != nil {
			f.panicVal = r
			buf := make([]byte, 32*1024)
			f.panicStack = buf[:runtime.Stack(buf, false)]
		}
		f.state.Store(int32(StateDone))
		gls.Clear()
		f.coro.Finish()
	}()
	f.entry()
}

// Yield suspends the fiber cooperatively: state -> SUSPENDED, control
// returns to whoever resumed it. The caller (typically the owning Worker)
// is responsible for re-enqueuing a SUSPENDED fiber.
func (f *Fiber) Yield() {
	if Current() != f {
		bug("yield called outside the fiber's own context (fiber %d)", f.ID)
	}
	if f.State() != StateDone {
		f.state.Store(int32(StateSuspended))
	}
	f.coro.Yield()
}

// BlockYield parks the fiber: state -> BLOCKED, control returns to whoever
// resumed it. The caller must already have recorded the fiber on whatever
// wait queue, fd context, or timer will eventually re-schedule it.
func (f *Fiber) BlockYield() {
	if Current() != f {
		bug("block_yield called outside the fiber's own context (fiber %d)", f.ID)
	}
	f.state.Store(int32(StateBlocked))
	f.coro.Yield()
}

// Sleep parks the calling fiber using its owning worker's timer wheel, for
// at least d rounded down to whole timer ticks (minimum one tick). Mirrors
// §6's `sleep(ms)`.
func (f *Fiber) Sleep(d time.Duration) {
	if Current() != f {
		bug("Sleep called outside the fiber's own context (fiber %d)", f.ID)
	}
	ThisWorkerTimerWheel().AddTimer(d, false, func() {
		scheduleWoken(f)
	})
	f.BlockYield()
}
