package fiber

import (
	"golang.org/x/sys/unix"

	"github.com/inory/fiber/fiberruntime"
)

// The I/O facade: fd-based read/write/accept/connect/close, each turning
// EAGAIN into park-on-fd-plus-timer. timeoutMs follows spec §6's
// convention: -1 infinite, 0 immediate. Every call must be made from inside
// a fiber running on the worker that owns fd's readiness registration.

func Read(fd int, buf []byte, timeoutMs int) (int, error) {
	return fiberruntime.Read(fd, buf, timeoutMs)
}

func ReadET(fd int, buf []byte, timeoutMs int) (int, error) {
	return fiberruntime.ReadET(fd, buf, timeoutMs)
}

func Write(fd int, buf []byte, timeoutMs int) (int, error) {
	return fiberruntime.Write(fd, buf, timeoutMs)
}

func Writev(fd int, iovs [][]byte, timeoutMs int) (int, error) {
	return fiberruntime.Writev(fd, iovs, timeoutMs)
}

func Sendfile(outfd, infd int, offset *int64, count, timeoutMs int) (int, error) {
	return fiberruntime.Sendfile(outfd, infd, offset, count, timeoutMs)
}

func Recv(fd int, buf []byte, flags, timeoutMs int) (int, error) {
	return fiberruntime.Recv(fd, buf, flags, timeoutMs)
}

func RecvET(fd int, buf []byte, flags, timeoutMs int) (int, error) {
	return fiberruntime.RecvET(fd, buf, flags, timeoutMs)
}

func Accept(fd int, timeoutMs int) (int, unix.Sockaddr, error) {
	return fiberruntime.Accept(fd, timeoutMs)
}

func AcceptET(fd int, timeoutMs int, onConn func(nfd int, sa unix.Sockaddr)) error {
	return fiberruntime.AcceptET(fd, timeoutMs, onConn)
}

func Connect(fd int, sa unix.Sockaddr, timeoutMs int) error {
	return fiberruntime.Connect(fd, sa, timeoutMs)
}

func Close(fd int) error {
	return fiberruntime.Close(fd)
}

func Shutdown(fd int, how int) error {
	return fiberruntime.Shutdown(fd, how)
}

// SetNonblock puts fd in non-blocking mode, required before any fd is
// passed to the functions above.
func SetNonblock(fd int) error {
	return fiberruntime.SetNonblock(fd)
}
