// Package pktline implements the Git pkt-line wire format: length-prefixed
// byte payloads with a distinguished flush packet, plus the side-band
// multiplexing layered on top of it.
package pktline

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const (
	// MaxPayloadLen is the largest payload a single pkt-line can carry.
	MaxPayloadLen = 65516
	// maxPacketLen is MaxPayloadLen plus the 4-byte length prefix.
	maxPacketLen = MaxPayloadLen + 4
)

// ErrTooLong is returned by WritePacket when a payload exceeds
// MaxPayloadLen.
var ErrTooLong = errors.New("pkt-line payload too long")

// ReadPacket reads one pkt-line from r. It returns the payload verbatim,
// or (nil, nil) for a flush packet. A malformed length prefix, an
// over-long declared length or a truncated payload is a framing error.
func ReadPacket(r io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("pkt-line: truncated length prefix: %w", err)
		}
		return nil, err
	}
	var size [2]byte
	if _, err := hex.Decode(size[:], prefix[:]); err != nil {
		return nil, fmt.Errorf("pkt-line: malformed length %q: %w", prefix[:], err)
	}
	n := int(size[0])<<8 | int(size[1])
	if n == 0 {
		return nil, nil // flush
	}
	if n < 4 {
		return nil, fmt.Errorf("pkt-line: invalid length %d", n)
	}
	if n > maxPacketLen {
		return nil, fmt.Errorf("pkt-line: declared length %d exceeds maximum %d", n, maxPacketLen)
	}
	payload := make([]byte, n-4)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("pkt-line: truncated payload (declared %d): %w", n, err)
	}
	return payload, nil
}

// ReadSeq reads pkt-lines from r until a flush packet, invoking fn for
// each payload. The flush itself is not passed to fn. The sequence is
// single-pass; an error from fn aborts the read.
func ReadSeq(r io.Reader, fn func(payload []byte) error) error {
	for {
		payload, err := ReadPacket(r)
		if err != nil {
			return err
		}
		if payload == nil {
			return nil
		}
		if err := fn(payload); err != nil {
			return err
		}
	}
}

// WritePacket frames payload as a single pkt-line. A nil payload writes a
// flush packet.
func WritePacket(w io.Writer, payload []byte) error {
	if payload == nil {
		return WriteFlush(w)
	}
	if len(payload) > MaxPayloadLen {
		return ErrTooLong
	}
	if _, err := fmt.Fprintf(w, "%04x", len(payload)+4); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// WriteFlush writes the flush packet "0000".
func WriteFlush(w io.Writer) error {
	_, err := io.WriteString(w, "0000")
	return err
}
