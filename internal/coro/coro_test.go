package coro

import "testing"

func TestCoroYieldAndResume(t *testing.T) {
	var c Coro
	var trace []string

	c.Start(func() {
		trace = append(trace, "a")
		c.Yield()
		trace = append(trace, "b")
		c.Yield()
		trace = append(trace, "c")
		c.Finish()
	})
	trace = append(trace, "between-1")
	c.Next()
	trace = append(trace, "between-2")
	c.Next()

	want := []string{"a", "between-1", "b", "between-2", "c"}
	if len(trace) != len(want) {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace = %v, want %v", trace, want)
		}
	}
}

func TestCoroFinishWithoutYield(t *testing.T) {
	var c Coro
	ran := false
	c.Start(func() {
		ran = true
		c.Finish()
	})
	if !ran {
		t.Fatal("coroutine body did not run")
	}
}
