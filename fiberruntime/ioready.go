package fiberruntime

import (
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sys/unix"
)

// Event is the subset of readiness a fiber can park on, per §4.6.
type Event uint32

const (
	EventRead Event = 1 << iota
	EventWrite
)

// fdContext bundles the read/write wait queues and armed-event mask for one
// fd, per §3's "Fd context" data model. It is created on first registration
// and destroyed once the last event is cleared.
type fdContext struct {
	events Event
	read   *WaitQueue
	write  *WaitQueue
}

// IOManager wraps one worker's edge-triggered epoll instance. It is
// deliberately per-worker rather than process-global (§4.6's design note):
// every field here is touched only by the owning worker's loop or by the
// fiber that loop is currently resuming (which runs on its own goroutine
// while the loop waits in Resume), never by both at once, so there is no
// locking anywhere in this file -- the only cross-thread
// interaction is the wake-up eventfd used to interrupt an in-progress
// EpollWait from another worker's timer or a Stop call.
//
// Grounded on the epoll wrapper in
// joeycumines-go-utilpkg/eventloop/poller_linux.go and its eventfd wake-up
// companion wakeup_linux.go, generalized from a single global poller to a
// per-worker one and from callback dispatch to wait-queue notification.
type IOManager struct {
	worker *Worker
	epfd   int
	wakeFd int
	fds    map[int]*fdContext
	events []unix.EpollEvent

	// parked bounds the number of fibers concurrently registered on this
	// manager's epoll instance to fiber.epoll_batch, giving that config key
	// a concrete effect beyond just sizing the EpollWait result buffer: a
	// worker juggling more parked waiters than it can ever see back in one
	// EpollWait batch is a sign of an fd leak or a runaway fan-out, so the
	// (batch+1)-th concurrent AddEvent call logs a warning. It still
	// registers and parks: the cap is not enforced.
	parked *semaphore.Weighted
}

func newIOManager(w *Worker, batch int) *IOManager {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		bug("epoll_create1 failed: %v", err)
	}
	wakeFd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		bug("eventfd failed: %v", err)
	}
	m := &IOManager{
		worker: w,
		epfd:   epfd,
		wakeFd: wakeFd,
		fds:    make(map[int]*fdContext),
		events: make([]unix.EpollEvent, batch),
		parked: semaphore.NewWeighted(int64(batch)),
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeFd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(wakeFd),
	}); err != nil {
		bug("registering wake fd failed: %v", err)
	}
	return m
}

// AddEvent registers interest in event on fd for the calling fiber and
// parks it on the appropriate wait list, per §4.6.
func (m *IOManager) AddEvent(fd int, event Event) {
	ctx, ok := m.fds[fd]
	if !ok {
		ctx = &fdContext{read: NewWaitQueue(), write: NewWaitQueue()}
		m.fds[fd] = ctx
	}
	old := ctx.events
	updated := old | event
	m.armKernel(fd, old, updated)
	ctx.events = updated

	// A failed TryAcquire is a soft signal only: we still park, since
	// refusing to register a fiber's readiness interest would leave it
	// blocked forever with nothing to ever wake it.
	acquired := m.parked.TryAcquire(1)
	if !acquired {
		runtimeLog().Warn("epoll_batch exceeded", "fd", fd, "worker", m.worker.id)
	}

	wq := ctx.read
	if event == EventWrite {
		wq = ctx.write
	}
	wq.Wait()

	if acquired {
		m.parked.Release(1)
	}
}

func (m *IOManager) armKernel(fd int, old, updated Event) {
	op := unix.EPOLL_CTL_MOD
	if old == 0 {
		op = unix.EPOLL_CTL_ADD
	}
	ev := unix.EpollEvent{
		Events: epollBits(updated) | unix.EPOLLET,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(m.epfd, op, fd, &ev); err != nil {
		bug("epoll_ctl(%d) failed: %v", fd, err)
	}
}

// DelEvent clears interest in event on fd. It reports whether an fd context
// existed for fd at all.
func (m *IOManager) DelEvent(fd int, event Event) bool {
	ctx, ok := m.fds[fd]
	if !ok {
		return false
	}
	updated := ctx.events &^ event
	if updated == 0 {
		if ctx.read.Len() != 0 || ctx.write.Len() != 0 {
			bug("dropping fd context for fd %d with waiters still parked", fd)
		}
		_ = unix.EpollCtl(m.epfd, unix.EPOLL_CTL_DEL, fd, nil)
		delete(m.fds, fd)
		return true
	}
	ev := unix.EpollEvent{Events: epollBits(updated) | unix.EPOLLET, Fd: int32(fd)}
	_ = unix.EpollCtl(m.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
	ctx.events = updated
	return true
}

// WakeUp forces every fiber waiting on fd for event to become READY,
// without deregistering from the kernel. Used to unblock parked fibers on
// close/shutdown/timer expiry, per §4.6. Per the source's resolved open
// question (§9), notify happens before any deregistration the caller does
// next.
func (m *IOManager) WakeUp(fd int, event Event) {
	ctx, ok := m.fds[fd]
	if !ok {
		return
	}
	if event&EventRead != 0 {
		ctx.read.NotifyAll()
	}
	if event&EventWrite != 0 {
		ctx.write.NotifyAll()
	}
}

// interrupt forces a blocked ProcessEvents call in this manager's worker to
// return promptly, by writing to the wake-up eventfd. Safe to call from any
// goroutine, including another worker or Stop.
func (m *IOManager) interrupt() {
	var buf [8]byte
	buf[7] = 1
	_, _ = unix.Write(m.wakeFd, buf[:])
}

// processEvents blocks up to timeout on the kernel notifier and translates
// readiness into wait-queue notifications, per §4.6's process_events. It
// must be called only from the owning worker's loop.
func (m *IOManager) processEvents(timeout time.Duration) {
	ms := int(timeout / time.Millisecond)
	if timeout < 0 {
		ms = -1
	}
	n, err := unix.EpollWait(m.epfd, m.events, ms)
	if err != nil {
		if err == unix.EINTR {
			return
		}
		return
	}
	for i := 0; i < n; i++ {
		fd := int(m.events[i].Fd)
		if fd == m.wakeFd {
			var buf [8]byte
			_, _ = unix.Read(m.wakeFd, buf[:])
			continue
		}
		revents := m.events[i].Events
		ctx, ok := m.fds[fd]
		if !ok {
			continue
		}
		if revents&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			ctx.read.NotifyAll()
		}
		if revents&(unix.EPOLLOUT|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			ctx.write.NotifyAll()
		}
	}
}

func epollBits(e Event) uint32 {
	var bits uint32
	if e&EventRead != 0 {
		bits |= unix.EPOLLIN
	}
	if e&EventWrite != 0 {
		bits |= unix.EPOLLOUT
	}
	return bits
}

// Close releases the epoll and wake fds. Called once from Scheduler.Stop
// after the worker's loop has exited.
func (m *IOManager) Close() {
	_ = unix.Close(m.wakeFd)
	_ = unix.Close(m.epfd)
}
