package fiberruntime

import (
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// doIO is the generic park-on-EAGAIN loop of §4.9: run op(), and on a
// would-block error, register readiness and block_yield until either the
// fd becomes ready or an armed timeout fires. timeoutMs follows §6's
// convention: -1 infinite, 0 immediate (no parking at all).
func doIO(fd int, event Event, timeoutMs int, op func() (int, error)) (int, error) {
	if timeoutMs == 0 {
		n, err := op()
		if err == nil || !wouldBlock(err) {
			return n, err
		}
		return 0, ErrTimeout
	}

	var woken atomic.Bool
	var timedOut atomic.Bool
	var timer TimerHandle
	hasTimer := timeoutMs > 0
	if hasTimer {
		mgr := ThisWorkerIOManager()
		timer = ThisWorkerTimerWheel().AddTimer(time.Duration(timeoutMs)*time.Millisecond, false, func() {
			if woken.CompareAndSwap(false, true) {
				timedOut.Store(true)
				mgr.WakeUp(fd, event)
			}
		})
	}

	for {
		n, err := op()
		if err == nil || !wouldBlock(err) {
			if hasTimer && woken.CompareAndSwap(false, true) {
				timer.Cancel()
			}
			return n, err
		}
		if timedOut.Load() {
			return 0, ErrTimeout
		}

		ThisWorkerIOManager().AddEvent(fd, event)
		ThisWorkerIOManager().DelEvent(fd, event)

		if timedOut.Load() {
			return 0, ErrTimeout
		}
	}
}

func wouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINPROGRESS || err == unix.EALREADY
}

// SetNonblock puts fd in non-blocking mode, a precondition for every
// function in this file: the facade never issues a blocking syscall.
func SetNonblock(fd int) error {
	return unix.SetNonblock(fd, true)
}

// Read reads up to len(buf) bytes from fd, parking on readability across
// EAGAIN as needed. Returns 0, nil at EOF.
func Read(fd int, buf []byte, timeoutMs int) (int, error) {
	return doIO(fd, EventRead, timeoutMs, func() (int, error) {
		return unix.Read(fd, buf)
	})
}

// ReadET is the edge-triggered variant: it drains fd into buf across
// however many readiness wakeups it takes to either fill buf or hit EAGAIN
// or EOF, per §4.9's edge-triggered contract.
func ReadET(fd int, buf []byte, timeoutMs int) (int, error) {
	total := 0
	for total < len(buf) {
		t := timeoutMs
		if total > 0 {
			t = 0 // already have data: stop at the next EAGAIN instead of parking
		}
		n, err := doIO(fd, EventRead, t, func() (int, error) {
			return unix.Read(fd, buf[total:])
		})
		if n > 0 {
			total += n
		}
		if err != nil {
			if total > 0 {
				return total, nil
			}
			return total, err
		}
		if n == 0 {
			return total, nil // EOF
		}
	}
	return total, nil
}

// Write writes buf to fd, parking on writability across EAGAIN.
func Write(fd int, buf []byte, timeoutMs int) (int, error) {
	return doIO(fd, EventWrite, timeoutMs, func() (int, error) {
		return unix.Write(fd, buf)
	})
}

// Writev is the scatter-gather form of Write.
func Writev(fd int, iovs [][]byte, timeoutMs int) (int, error) {
	return doIO(fd, EventWrite, timeoutMs, func() (int, error) {
		return unix.Writev(fd, iovs)
	})
}

// Sendfile copies count bytes from infd to outfd, parking on outfd's
// writability across EAGAIN.
func Sendfile(outfd, infd int, offset *int64, count int, timeoutMs int) (int, error) {
	return doIO(outfd, EventWrite, timeoutMs, func() (int, error) {
		return unix.Sendfile(outfd, infd, offset, count)
	})
}

// Recv is Read specialized for sockets with recv(2) flags.
func Recv(fd int, buf []byte, flags int, timeoutMs int) (int, error) {
	return doIO(fd, EventRead, timeoutMs, func() (int, error) {
		n, _, err := unix.Recvfrom(fd, buf, flags)
		return n, err
	})
}

// RecvET is the edge-triggered variant of Recv.
func RecvET(fd int, buf []byte, flags int, timeoutMs int) (int, error) {
	total := 0
	for total < len(buf) {
		t := timeoutMs
		if total > 0 {
			t = 0 // already have data: stop at the next EAGAIN instead of parking
		}
		n, err := doIO(fd, EventRead, t, func() (int, error) {
			nn, _, e := unix.Recvfrom(fd, buf[total:], flags)
			return nn, e
		})
		if n > 0 {
			total += n
		}
		if err != nil {
			if total > 0 {
				return total, nil
			}
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
	return total, nil
}

// Accept accepts one connection on the listening socket fd, per §4.9. New
// connection fds are set non-blocking and left level-of-triggering up to
// the caller's next park -- per §9's resolved open question, they inherit
// edge-triggered semantics like every other fd this facade manages.
func Accept(fd int, timeoutMs int) (int, unix.Sockaddr, error) {
	var nfd int
	var sa unix.Sockaddr
	_, err := doIO(fd, EventRead, timeoutMs, func() (int, error) {
		n, s, e := unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		nfd, sa = n, s
		return n, e
	})
	if err != nil {
		return -1, nil, err
	}
	return nfd, sa, nil
}

// AcceptET repeatedly accepts on fd, invoking accept once per readiness
// wakeup until would-block, calling onConn for each new connection. Used by
// listeners that want to drain the full accept backlog per edge, per §4.9's
// edge-triggered contract.
func AcceptET(fd int, timeoutMs int, onConn func(nfd int, sa unix.Sockaddr)) error {
	for {
		nfd, s, e := unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if e == nil {
			onConn(nfd, s)
			continue
		}
		if !wouldBlock(e) {
			return e
		}
		var sa unix.Sockaddr
		nfd, err := doIO(fd, EventRead, timeoutMs, func() (int, error) {
			n, s, e := unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
			sa = s
			return n, e
		})
		if err != nil {
			return err
		}
		onConn(nfd, sa)
	}
}

// Connect initiates a non-blocking connect on fd. If the kernel reports
// EINPROGRESS, it parks the calling fiber on writability, then checks
// SO_ERROR, per §4.9's special-cased connect.
func Connect(fd int, sa unix.Sockaddr, timeoutMs int) error {
	err := unix.Connect(fd, sa)
	if err == nil {
		return nil
	}
	if err != unix.EINPROGRESS {
		return err
	}

	parked := false
	_, err = doIO(fd, EventWrite, timeoutMs, func() (int, error) {
		if !parked {
			// SO_ERROR reads 0 while the connect is still pending, so park on
			// writability once before consulting it.
			parked = true
			return 0, unix.EAGAIN
		}
		errno, gerr := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if gerr != nil {
			return 0, gerr
		}
		if errno != 0 {
			return 0, unix.Errno(errno)
		}
		return 0, nil
	})
	return err
}

// Close wakes every fiber parked on fd (both read and write waiters) before
// closing the descriptor, guaranteeing a parked fiber returns promptly with
// an I/O error rather than hanging, per §4.9.
func Close(fd int) error {
	ThisWorkerIOManager().WakeUp(fd, EventRead|EventWrite)
	ThisWorkerIOManager().DelEvent(fd, EventRead|EventWrite)
	return unix.Close(fd)
}

// Shutdown shuts down fd's read and/or write half per how (unix.SHUT_RD,
// SHUT_WR, SHUT_RDWR), waking waiters on the affected direction(s) first.
func Shutdown(fd int, how int) error {
	switch how {
	case unix.SHUT_RD:
		ThisWorkerIOManager().WakeUp(fd, EventRead)
	case unix.SHUT_WR:
		ThisWorkerIOManager().WakeUp(fd, EventWrite)
	default:
		ThisWorkerIOManager().WakeUp(fd, EventRead|EventWrite)
	}
	return unix.Shutdown(fd, how)
}
