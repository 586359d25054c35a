package lockfree

import (
	"sync"
	"testing"

	"pgregory.net/rapid"
)

func TestQueueFIFOSingleProducer(t *testing.T) {
	q := New[int]()
	for i := 0; i < 1000; i++ {
		q.PushBack(i)
	}
	for i := 0; i < 1000; i++ {
		v, ok := q.PopFront()
		if !ok || v != i {
			t.Fatalf("PopFront() = %d, %v, want %d, true", v, ok, i)
		}
	}
	if _, ok := q.PopFront(); ok {
		t.Fatal("expected empty queue")
	}
	if !q.Empty() {
		t.Fatal("Empty() = false on drained queue")
	}
}

func TestQueueConcurrentProducersConsumers(t *testing.T) {
	q := New[int]()
	const producers = 8
	const perProducer = 2000

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.PushBack(base*perProducer + i)
			}
		}(p)
	}

	seen := make([]bool, producers*perProducer)
	var seenMu sync.Mutex
	var consumeWg sync.WaitGroup
	for c := 0; c < 4; c++ {
		consumeWg.Add(1)
		go func() {
			defer consumeWg.Done()
			for {
				v, ok := q.PopFront()
				if !ok {
					if q.Size() == 0 {
						return
					}
					continue
				}
				seenMu.Lock()
				seen[v] = true
				seenMu.Unlock()
			}
		}()
	}

	wg.Wait()
	// drain any stragglers after producers finish
	for q.Size() > 0 {
		if v, ok := q.PopFront(); ok {
			seenMu.Lock()
			seen[v] = true
			seenMu.Unlock()
		}
	}
	consumeWg.Wait()

	for i, ok := range seen {
		if !ok {
			t.Fatalf("value %d never observed", i)
		}
	}
}

func TestCheckQueueModel(t *testing.T) {
	rapid.Check(t, checkQueueModel)
}

// checkQueueModel drives a single-producer Queue against a plain slice
// model, in the actions-map + t.Repeat style used by the teacher's own
// timer-heap property test.
func checkQueueModel(t *rapid.T) {
	q := New[int]()
	var model []int

	actions := map[string]func(t *rapid.T){
		"push": func(t *rapid.T) {
			v := rapid.Int().Draw(t, "v")
			model = append(model, v)
			q.PushBack(v)
		},
		"pop": func(t *rapid.T) {
			got, ok := q.PopFront()
			if len(model) == 0 {
				if ok {
					t.Fatalf("PopFront() returned %d on empty model", got)
				}
				return
			}
			want := model[0]
			model = model[1:]
			if !ok || got != want {
				t.Fatalf("PopFront() = %d, %v, want %d, true", got, ok, want)
			}
		},
		"": func(t *rapid.T) {
			if got, want := q.Size(), int64(len(model)); got != want {
				t.Fatalf("Size() = %d, want %d", got, want)
			}
			if want := len(model) == 0; q.Empty() != want {
				t.Fatalf("Empty() = %v, want %v", q.Empty(), want)
			}
		},
	}

	t.Repeat(actions)
}
