package fiberruntime

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func mustPipe(t *testing.T) (r, w int) {
	t.Helper()
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		t.Fatalf("pipe2: %v", err)
	}
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestReadParksUntilDataArrives(t *testing.T) {
	r, w := mustPipe(t)

	cfg := DefaultConfig()
	cfg.NumConsumers = 1
	s := NewScheduler(cfg)

	result := make(chan string, 1)
	s.Go(1, func() {
		buf := make([]byte, 32)
		n, err := Read(r, buf, -1)
		if err != nil {
			result <- "error: " + err.Error()
			return
		}
		result <- string(buf[:n])
	})

	go s.Run()
	defer s.Stop()

	time.Sleep(30 * time.Millisecond)
	if _, err := unix.Write(w, []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case got := <-result:
		if got != "hello" {
			t.Fatalf("read %q, want hello", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for parked Read to observe data")
	}
}

// TestReadTimesOutOnIdlePipe is spec §8's S2 scenario: Read with a finite
// timeout on a fd that never becomes readable must return ErrTimeout rather
// than blocking forever.
func TestReadTimesOutOnIdlePipe(t *testing.T) {
	r, _ := mustPipe(t)

	cfg := DefaultConfig()
	cfg.NumConsumers = 1
	s := NewScheduler(cfg)

	result := make(chan error, 1)
	s.Go(1, func() {
		buf := make([]byte, 32)
		_, err := Read(r, buf, 50)
		result <- err
	})

	go s.Run()
	defer s.Stop()

	select {
	case err := <-result:
		if err != ErrTimeout {
			t.Fatalf("err = %v, want ErrTimeout", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for Read's own timeout to fire")
	}
}

// TestCloseWakesBlockedReader is spec §8's S3 scenario: closing an fd another
// fiber is parked reading from must wake it promptly with an error, not hang.
func TestCloseWakesBlockedReader(t *testing.T) {
	r, _ := mustPipe(t)

	cfg := DefaultConfig()
	cfg.NumConsumers = 1
	s := NewScheduler(cfg)

	result := make(chan error, 1)
	s.Go(1, func() {
		buf := make([]byte, 32)
		_, err := Read(r, buf, -1)
		result <- err
	})

	go s.Run()
	defer s.Stop()

	s.Go(2, func() {
		time.Sleep(30 * time.Millisecond)
		_ = Close(r)
	})

	select {
	case err := <-result:
		if err == nil {
			t.Fatal("expected an error from Read after its fd was closed")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for Close to wake the blocked reader")
	}
}

func TestReadImmediateTimeoutDoesNotPark(t *testing.T) {
	r, _ := mustPipe(t)
	// timeoutMs == 0 must never park: called outside any fiber, so parking
	// would panic via thisWorker()'s bug() check.
	buf := make([]byte, 8)
	_, err := Read(r, buf, 0)
	if err != ErrTimeout {
		t.Fatalf("err = %v, want ErrTimeout on an immediate, empty pipe", err)
	}
}
