package fiberruntime

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestTimerWheelFiresEventually(t *testing.T) {
	w := newTimerWheel(8, time.Millisecond)
	fired := 0
	w.AddTimer(5*time.Millisecond, false, func() { fired++ })

	for i := 0; i < 3; i++ {
		w.tick()
		if fired != 0 {
			t.Fatalf("fired too early, at tick %d", i)
		}
	}
	for i := 0; i < 10 && fired == 0; i++ {
		w.tick()
	}
	if fired != 1 {
		t.Fatalf("fired = %d, want exactly 1", fired)
	}
}

func TestTimerCancelPreventsFire(t *testing.T) {
	w := newTimerWheel(8, time.Millisecond)
	fired := false
	h := w.AddTimer(3*time.Millisecond, false, func() { fired = true })
	w.drainPending(16)
	h.Cancel()
	for i := 0; i < 20; i++ {
		w.tick()
	}
	if fired {
		t.Fatal("cancelled timer fired")
	}
}

func TestTimerRepeatFiresMultipleTimes(t *testing.T) {
	w := newTimerWheel(4, time.Millisecond)
	fired := 0
	w.AddTimer(2*time.Millisecond, true, func() { fired++ })
	for i := 0; i < 40; i++ {
		w.tick()
	}
	if fired < 3 {
		t.Fatalf("repeat fired only %d times in 40 ticks", fired)
	}
}

func TestTimerWheelNeverFiresBeforeMinimumTicks(t *testing.T) {
	// Property 3 of §8: no callback earlier than floor(scheduled_ms/tick_ms)*tick_ms.
	rapid.Check(t, func(rt *rapid.T) {
		numSlots := rapid.IntRange(2, 32).Draw(rt, "slots")
		ms := rapid.Int64Range(1, 500).Draw(rt, "ms")

		w := newTimerWheel(numSlots, time.Millisecond)
		minTicks := ms
		if minTicks < 1 {
			minTicks = 1
		}

		fired := false
		w.AddTimer(time.Duration(ms)*time.Millisecond, false, func() { fired = true })
		w.drainPending(16)

		for i := int64(0); i < minTicks; i++ {
			w.tick()
			if fired {
				rt.Fatalf("fired at tick %d, before minimum %d", i, minTicks)
			}
		}
	})
}
