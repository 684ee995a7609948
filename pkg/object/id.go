package object

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// ID is a 20-byte SHA-1 object identifier.
type ID [20]byte

// ZeroID (20 zero bytes) designates a nonexistent object, for example the
// old side of a ref creation.
var ZeroID ID

// IsZero reports whether the identifier is the zero sentinel.
func (id ID) IsZero() bool {
	return id == ZeroID
}

// String returns the 40-character lowercase hex form.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// HexBytes returns the 40-byte hex form as it appears on the wire.
func (id ID) HexBytes() []byte {
	dst := make([]byte, 40)
	hex.Encode(dst, id[:])
	return dst
}

// ParseID parses a 40-character hex string.
func ParseID(s string) (ID, error) {
	return ParseHexID([]byte(s))
}

// ParseHexID parses a 40-byte hex representation.
func ParseHexID(b []byte) (ID, error) {
	var id ID
	if len(b) != 40 {
		return ZeroID, fmt.Errorf("object id %q: want 40 hex digits, got %d", b, len(b))
	}
	if _, err := hex.Decode(id[:], b); err != nil {
		return ZeroID, fmt.Errorf("object id %q: %w", b, err)
	}
	return id, nil
}

// IDFromRaw builds an identifier from its 20 raw bytes.
func IDFromRaw(b []byte) (ID, error) {
	var id ID
	if len(b) != 20 {
		return ZeroID, fmt.Errorf("object id: want 20 raw bytes, got %d", len(b))
	}
	copy(id[:], b)
	return id, nil
}

// ComputeID hashes an object the way Git does: the type name, a space, the
// decimal body length, a NUL, then the body.
func ComputeID(obj Object) ID {
	raw := obj.Raw()
	h := sha1.New()
	fmt.Fprintf(h, "%s %d\x00", obj.Type(), len(raw))
	h.Write(raw)
	var id ID
	copy(id[:], h.Sum(nil))
	return id
}
