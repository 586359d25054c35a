package fiberruntime

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestChannelSendRecvRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumConsumers = 1
	s := NewScheduler(cfg)

	ch := NewChannel[int](4)
	got := make(chan int, 1)

	s.Go(1, func() {
		v, err := ch.Recv()
		if err != nil {
			t.Errorf("Recv: %v", err)
		}
		got <- v
	})
	s.Go(2, func() {
		if err := ch.Send(42); err != nil {
			t.Errorf("Send: %v", err)
		}
	})

	go s.Run()
	defer s.Stop()

	select {
	case v := <-got:
		if v != 42 {
			t.Fatalf("received %d, want 42", v)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out")
	}
}

// TestChannelProducerConsumerFanIn is spec §8's S1 scenario: 8 producers
// each send 1..1000 into a capacity-16 channel; 4 consumers drain and sum.
// The grand total must equal 8 * sum(1..1000) with none lost or duplicated.
func TestChannelProducerConsumerFanIn(t *testing.T) {
	const producers = 8
	const perProducer = 1000
	const consumers = 4

	cfg := DefaultConfig()
	cfg.NumConsumers = 4
	s := NewScheduler(cfg)

	ch := NewChannel[int](16)
	var total atomic.Int64
	var received atomic.Int64
	producersDone := NewWaitGroup()
	_ = producersDone.Add(producers)
	consumersDone := NewWaitGroup()
	_ = consumersDone.Add(consumers)

	for i := 0; i < producers; i++ {
		s.Go(uint64(i), func() {
			for v := 1; v <= perProducer; v++ {
				if err := ch.Send(v); err != nil {
					t.Errorf("Send: %v", err)
					break
				}
			}
			_ = producersDone.Done()
		})
	}

	// Closer: waits for every producer, then closes the channel so
	// consumers can observe the drained-and-closed end condition.
	s.Go(1000, func() {
		producersDone.Wait()
		ch.Close()
	})

	for i := 0; i < consumers; i++ {
		s.Go(uint64(2000+i), func() {
			for {
				v, err := ch.Recv()
				if err != nil {
					break
				}
				total.Add(int64(v))
				received.Add(1)
			}
			_ = consumersDone.Done()
		})
	}

	go s.Run()
	defer s.Stop()

	done := make(chan struct{})
	s.Go(3000, func() {
		consumersDone.Wait()
		close(done)
	})

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for producers/consumers to finish")
	}

	wantCount := int64(producers * perProducer)
	wantSum := int64(producers) * int64(perProducer*(perProducer+1)/2)
	if received.Load() != wantCount {
		t.Fatalf("received %d values, want %d", received.Load(), wantCount)
	}
	if total.Load() != wantSum {
		t.Fatalf("sum = %d, want %d", total.Load(), wantSum)
	}
}

func TestChannelCloseWakesBlockedReceiver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumConsumers = 1
	s := NewScheduler(cfg)

	ch := NewChannel[int](1)
	errc := make(chan error, 1)

	s.Go(1, func() {
		_, err := ch.Recv()
		errc <- err
	})

	go func() {
		time.Sleep(20 * time.Millisecond)
		ch.Close()
	}()

	go s.Run()
	defer s.Stop()

	select {
	case err := <-errc:
		if err == nil {
			t.Fatal("expected a Closed error from Recv on a closed, empty channel")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for Close to wake the blocked receiver")
	}
}

func TestChannelTrySendFailsWhenFull(t *testing.T) {
	ch := NewChannel[int](1)
	ok, err := ch.TrySend(1)
	if !ok || err != nil {
		t.Fatalf("first TrySend: ok=%v err=%v", ok, err)
	}
	ok, err = ch.TrySend(2)
	if ok || err != nil {
		t.Fatalf("second TrySend on a full channel: ok=%v err=%v, want ok=false err=nil", ok, err)
	}
}

func TestChannelSendAfterCloseFails(t *testing.T) {
	ch := NewChannel[int](1)
	ch.Close()
	if err := ch.Send(1); err == nil {
		t.Fatal("expected Send on a closed channel to fail")
	}
}
