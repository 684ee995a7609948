package pktline

import (
	"encoding/hex"
	"fmt"
)

// Parser reassembles pkt-lines from arbitrarily chunked byte input. It is
// used where a pkt-line stream arrives inside another stream, such as a
// status report carried on side-band channel 1. The callback receives each
// payload, with nil for a flush packet.
type Parser struct {
	onPacket func(payload []byte) error
	buf      []byte
}

// NewParser creates a Parser dispatching to fn.
func NewParser(fn func(payload []byte) error) *Parser {
	return &Parser{onPacket: fn}
}

// Feed appends data and dispatches every complete pkt-line it now holds.
// Incomplete trailing packets stay buffered until more data arrives.
func (p *Parser) Feed(data []byte) error {
	p.buf = append(p.buf, data...)
	for {
		if len(p.buf) < 4 {
			return nil
		}
		var size [2]byte
		if _, err := hex.Decode(size[:], p.buf[:4]); err != nil {
			return fmt.Errorf("pkt-line: malformed length %q: %w", p.buf[:4], err)
		}
		n := int(size[0])<<8 | int(size[1])
		if n == 0 {
			p.buf = p.buf[4:]
			if err := p.onPacket(nil); err != nil {
				return err
			}
			continue
		}
		if n < 4 {
			return fmt.Errorf("pkt-line: invalid length %d", n)
		}
		if n > maxPacketLen {
			return fmt.Errorf("pkt-line: declared length %d exceeds maximum %d", n, maxPacketLen)
		}
		if len(p.buf) < n {
			return nil
		}
		payload := make([]byte, n-4)
		copy(payload, p.buf[4:n])
		p.buf = p.buf[n:]
		if err := p.onPacket(payload); err != nil {
			return err
		}
	}
}

// Pending returns the number of buffered bytes not yet forming a complete
// packet.
func (p *Parser) Pending() int {
	return len(p.buf)
}
