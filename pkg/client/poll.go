//go:build unix

package client

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// fdReadable polls a file descriptor with a zero timeout, reporting
// whether a read would complete immediately.
func fdReadable(fd uintptr) bool {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, 0)
		if err == unix.EINTR {
			continue
		}
		return err == nil && n > 0 && fds[0].Revents&unix.POLLIN != 0
	}
}

// fileCanRead builds a readability predicate over an *os.File, such as a
// subprocess pipe.
func fileCanRead(f *os.File) func() bool {
	return func() bool {
		return fdReadable(f.Fd())
	}
}

// connCanRead builds a readability predicate over a socket-backed
// connection. When the descriptor cannot be inspected the predicate
// reports false, which only makes the client keep batching haves.
func connCanRead(sc syscall.Conn) func() bool {
	raw, err := sc.SyscallConn()
	if err != nil {
		return func() bool { return false }
	}
	return func() bool {
		readable := false
		if err := raw.Control(func(fd uintptr) {
			readable = fdReadable(fd)
		}); err != nil {
			return false
		}
		return readable
	}
}
