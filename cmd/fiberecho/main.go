// Command fiberecho is a demo TCP echo server built entirely on the fiber
// facade: one fiber accepts, spawning one fiber per connection, each doing
// straight-line blocking-style reads and writes over the edge-triggered
// I/O facade. It exists to exercise the core end to end, not to
// demonstrate a production server design.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/inory/fiber"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9999", "listen address")
	workers := flag.Int("workers", 0, "worker count (0 = default)")
	logFormat := flag.String("log-format", "", "json|console (default: auto-detect)")
	flag.Parse()

	logger := fiber.NewLogger(fiber.LogFormat(*logFormat), slog.LevelInfo)
	slog.SetDefault(logger)
	fiber.SetLogger(logger)

	cfg := fiber.DefaultConfig()
	if *workers > 0 {
		cfg.NumConsumers = *workers
	}
	fiber.Init(cfg)

	lfd, sa, err := listenTCP(*addr)
	if err != nil {
		logger.Error("listen failed", "addr", *addr, "err", err)
		os.Exit(1)
	}
	logger.Info("listening", "addr", sockaddrString(sa), "workers", fiber.WorkerCount())

	fiber.Go(func() {
		acceptLoop(lfd, logger)
	})

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		logger.Info("shutting down")
		// unix.Close, not fiber.Close: this goroutine is not itself a
		// fiber, and Close's wake-up path needs the calling worker's I/O
		// manager. Stop's own interrupt() promptly unblocks every
		// worker's epoll_wait regardless.
		_ = unix.Close(lfd)
		fiber.Stop()
	}()

	fiber.Run()
}

func acceptLoop(lfd int, logger *slog.Logger) {
	for {
		nfd, _, err := fiber.Accept(lfd, -1)
		if err != nil {
			logger.Info("accept loop exiting", "err", err)
			return
		}
		fiber.Go(func() {
			handleConn(nfd, logger)
		})
	}
}

func handleConn(fd int, logger *slog.Logger) {
	defer fiber.Close(fd)
	buf := make([]byte, 64*1024)
	for {
		n, err := fiber.ReadET(fd, buf, -1)
		if err != nil || n == 0 {
			return
		}
		if _, err := fiber.Write(fd, buf[:n], -1); err != nil {
			logger.Debug("write failed", "fd", fd, "err", err)
			return
		}
	}
}

func listenTCP(addr string) (int, unix.Sockaddr, error) {
	sa, err := resolveTCP(addr)
	if err != nil {
		return -1, nil, err
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, nil, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return -1, nil, err
	}
	if err := unix.Bind(fd, sa); err != nil {
		return -1, nil, err
	}
	if err := unix.Listen(fd, 1024); err != nil {
		return -1, nil, err
	}
	if err := fiber.SetNonblock(fd); err != nil {
		return -1, nil, err
	}
	return fd, sa, nil
}

func resolveTCP(addr string) (unix.Sockaddr, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp4", addr)
	if err != nil {
		return nil, err
	}
	sa := &unix.SockaddrInet4{Port: tcpAddr.Port}
	copy(sa.Addr[:], tcpAddr.IP.To4())
	return sa, nil
}

// localAddr returns the "host:port" a listening socket fd is actually bound
// to, useful when listenTCP was asked for an ephemeral port (":0").
func localAddr(fd int) (string, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return "", err
	}
	return sockaddrString(sa), nil
}

func sockaddrString(sa unix.Sockaddr) string {
	s, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return "?"
	}
	ip := net.IP(s.Addr[:])
	return fmt.Sprintf("%s:%d", ip, s.Port)
}
