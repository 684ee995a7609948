package client

import (
	"bufio"
	"errors"
	"io"

	"github.com/odvcencio/gitwire/pkg/pktline"
)

// Conn is one duplex pkt-line conversation with a git service. Transports
// construct it around whatever byte channel they establish; the engine
// performs a single synchronous conversation over it start to finish.
//
// canRead is the advisory non-blocking-peek predicate: true means a read
// will not block right now, false means nothing is pending yet, not that
// nothing will ever arrive.
type Conn struct {
	br      *bufio.Reader
	w       io.Writer
	closeFn func() error
	canRead func() bool
}

// NewConn assembles a Conn. Either side may be nil for one-directional
// channels (an HTTP request body is write-only, its response read-only).
// closeFn and canRead may be nil.
func NewConn(r io.Reader, w io.Writer, closeFn func() error, canRead func() bool) *Conn {
	c := &Conn{w: w, closeFn: closeFn, canRead: canRead}
	if r != nil {
		c.br = bufio.NewReader(r)
	}
	return c
}

// ReadPacket reads one pkt-line payload; nil means flush.
func (c *Conn) ReadPacket() ([]byte, error) {
	if c.br == nil {
		return nil, errors.New("connection is write-only")
	}
	return pktline.ReadPacket(c.br)
}

// WritePacket frames payload as one pkt-line; nil writes a flush.
func (c *Conn) WritePacket(payload []byte) error {
	return pktline.WritePacket(c.w, payload)
}

// WriteFlush writes the flush packet.
func (c *Conn) WriteFlush() error {
	return pktline.WriteFlush(c.w)
}

// Read reads raw bytes, bypassing pkt-line framing. Used for pack streams
// outside side-band mode.
func (c *Conn) Read(p []byte) (int, error) {
	if c.br == nil {
		return 0, errors.New("connection is write-only")
	}
	return c.br.Read(p)
}

// Write writes raw bytes, bypassing pkt-line framing. Used to stream pack
// contents onto the wire.
func (c *Conn) Write(p []byte) (int, error) {
	return c.w.Write(p)
}

// CanRead reports whether a read would complete without blocking.
// Advisory only.
func (c *Conn) CanRead() bool {
	if c.br != nil && c.br.Buffered() > 0 {
		return true
	}
	if c.canRead == nil {
		return false
	}
	return c.canRead()
}

// Close releases the underlying channel.
func (c *Conn) Close() error {
	if c.closeFn == nil {
		return nil
	}
	return c.closeFn()
}

// drainCheck reads to EOF and fails if any bytes remain on the
// connection after the conversation is supposed to be over.
func drainCheck(c *Conn) error {
	var buf [512]byte
	n, err := c.Read(buf[:])
	if n > 0 {
		return protocolErrorf("unexpected %d trailing bytes after transfer", n)
	}
	if err != nil && err != io.EOF {
		return err
	}
	return nil
}
