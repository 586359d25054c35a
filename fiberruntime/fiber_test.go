package fiberruntime

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFiberYieldSuspendsAndResumes(t *testing.T) {
	var trace []string
	f := newFiber(func() {
		trace = append(trace, "a")
		Current().Yield()
		trace = append(trace, "b")
	}, RunModeManual, 0)

	f.Resume()
	if got := f.State(); got != StateSuspended {
		t.Fatalf("state after first resume = %v, want suspended", got)
	}
	if diff := cmp.Diff([]string{"a"}, trace); diff != "" {
		t.Fatalf("trace after first resume (-want +got):\n%s", diff)
	}

	f.Resume()
	if got := f.State(); got != StateDone {
		t.Fatalf("state after second resume = %v, want done", got)
	}
	if diff := cmp.Diff([]string{"a", "b"}, trace); diff != "" {
		t.Fatalf("trace after second resume (-want +got):\n%s", diff)
	}
}

func TestFiberResumeOfDoneFiberIsIgnored(t *testing.T) {
	f := newFiber(func() {}, RunModeManual, 0)
	f.Resume()
	if f.State() != StateDone {
		t.Fatalf("state = %v, want done", f.State())
	}
	f.Resume() // must be a no-op, not a crash
	if f.State() != StateDone {
		t.Fatalf("state after resume-of-done = %v, want done", f.State())
	}
}

func TestCurrentIsNilOutsideAFiber(t *testing.T) {
	if Current() != nil {
		t.Fatal("Current() should be nil outside any fiber")
	}
}

func TestCurrentInsideFiberIsItself(t *testing.T) {
	var seen *Fiber
	f := newFiber(func() {
		seen = Current()
	}, RunModeManual, 0)
	f.Resume()
	if seen != f {
		t.Fatalf("Current() inside entry = %v, want %v", seen, f)
	}
	if Current() != nil {
		t.Fatal("Current() should be restored to nil after Resume returns")
	}
}

func TestFiberPanicIsRecoveredAndMarksDone(t *testing.T) {
	f := newFiber(func() {
		panic("boom")
	}, RunModeManual, 0)
	f.Resume()
	if f.State() != StateDone {
		t.Fatalf("state = %v, want done despite panic", f.State())
	}
	if f.panicVal != "boom" {
		t.Fatalf("panicVal = %v, want boom", f.panicVal)
	}
	if len(f.panicStack) == 0 {
		t.Fatal("expected a captured stack trace")
	}
}

func TestNestedResumeRestoresParentAsCurrent(t *testing.T) {
	var innerSawOuterAsParent bool
	var outerSeenAfterInner *Fiber

	outer := newFiber(func() {
		inner := newFiber(func() {
			innerSawOuterAsParent = Current() != nil
		}, RunModeManual, 0)
		inner.Resume()
		outerSeenAfterInner = Current()
	}, RunModeManual, 0)

	outer.Resume()

	if !innerSawOuterAsParent {
		t.Fatal("inner fiber should see itself as Current while running")
	}
	if outerSeenAfterInner != outer {
		t.Fatalf("outer should be restored as Current after inner finishes, got %v", outerSeenAfterInner)
	}
}

func TestPinToAssignsConsumerIDOnce(t *testing.T) {
	w := &Worker{id: 3}
	f := newFiber(func() {}, RunModeScheduled, 0)

	if f.ConsumerID() != -1 {
		t.Fatalf("ConsumerID before pinning = %d, want -1", f.ConsumerID())
	}
	f.pinTo(w)
	if f.ConsumerID() != 3 {
		t.Fatalf("ConsumerID after pinning = %d, want 3", f.ConsumerID())
	}
	// Re-pinning to the same worker must be a harmless no-op.
	f.pinTo(w)
	if f.ConsumerID() != 3 {
		t.Fatalf("ConsumerID after re-pin = %d, want 3", f.ConsumerID())
	}
}

func TestYieldOutsideOwnContextIsABug(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a bug panic calling Yield from the wrong context")
		}
	}()
	f := newFiber(func() {}, RunModeManual, 0)
	f.Yield()
}
