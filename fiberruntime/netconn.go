package fiberruntime

import (
	"io"
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// Conn adapts a fiber-managed socket fd to the net.Conn shape, so code
// written against the standard library's networking interfaces can run
// unmodified on top of the fiber I/O facade -- every Read/Write parks the
// calling fiber rather than the OS thread, per §4.9.
type Conn struct {
	fd      int
	local   net.Addr
	remote  net.Addr
	readDL  time.Time
	writeDL time.Time
}

// NewConn wraps an already-connected, non-blocking socket fd.
func NewConn(fd int, local, remote net.Addr) *Conn {
	return &Conn{fd: fd, local: local, remote: remote}
}

func deadlineTimeoutMs(dl time.Time) int {
	if dl.IsZero() {
		return -1
	}
	d := time.Until(dl)
	if d <= 0 {
		return 0
	}
	return int(d.Milliseconds())
}

func (c *Conn) Read(b []byte) (int, error) {
	n, err := ReadET(c.fd, b, deadlineTimeoutMs(c.readDL))
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (c *Conn) Write(b []byte) (int, error) {
	return Write(c.fd, b, deadlineTimeoutMs(c.writeDL))
}

func (c *Conn) Close() error { return Close(c.fd) }

func (c *Conn) LocalAddr() net.Addr  { return c.local }
func (c *Conn) RemoteAddr() net.Addr { return c.remote }

func (c *Conn) SetDeadline(t time.Time) error {
	c.readDL, c.writeDL = t, t
	return nil
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	c.readDL = t
	return nil
}

func (c *Conn) SetWriteDeadline(t time.Time) error {
	c.writeDL = t
	return nil
}

// Listener adapts a fiber-managed listening fd to the net.Listener shape.
type Listener struct {
	fd    int
	local net.Addr
}

// NewListener wraps an already-bound, listening, non-blocking socket fd.
func NewListener(fd int, local net.Addr) *Listener {
	return &Listener{fd: fd, local: local}
}

// Accept blocks the calling fiber until a connection arrives.
func (l *Listener) Accept() (net.Conn, error) {
	nfd, sa, err := Accept(l.fd, -1)
	if err != nil {
		return nil, err
	}
	return NewConn(nfd, l.local, sockaddrToAddr(sa)), nil
}

func (l *Listener) Close() error   { return Close(l.fd) }
func (l *Listener) Addr() net.Addr { return l.local }

func sockaddrToAddr(sa unix.Sockaddr) net.Addr {
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(s.Addr[:]), Port: s.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(s.Addr[:]), Port: s.Port}
	default:
		return nil
	}
}
