//go:build !unix

package client

import (
	"os"
	"syscall"
)

// Without poll(2) the predicates report false, which only makes the
// client keep batching haves instead of reading ACKs opportunistically.

func fileCanRead(*os.File) func() bool {
	return func() bool { return false }
}

func connCanRead(syscall.Conn) func() bool {
	return func() bool { return false }
}
