// Package packfile writes Git pack streams: a header, one zlib-compressed
// entry per object and a trailing SHA-1 over everything before it. Entries
// are written undeltified; delta compression is left to the server side.
package packfile

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"hash"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/odvcencio/gitwire/pkg/object"
)

// Pack entry type codes.
const (
	typeCommit = 1
	typeTree   = 2
	typeBlob   = 3
	typeTag    = 4
)

func typeCode(t object.Type) (byte, error) {
	switch t {
	case object.TypeCommit:
		return typeCommit, nil
	case object.TypeTree:
		return typeTree, nil
	case object.TypeBlob:
		return typeBlob, nil
	case object.TypeTag:
		return typeTag, nil
	default:
		return 0, fmt.Errorf("packfile: unsupported object type %q", t)
	}
}

// WritePack serializes objects as a pack stream onto w and returns the
// trailing checksum identifier.
func WritePack(w io.Writer, objects []object.Object) (object.ID, error) {
	hw := &hashWriter{w: w, h: sha1.New()}

	var header [12]byte
	copy(header[:4], "PACK")
	binary.BigEndian.PutUint32(header[4:8], 2)
	binary.BigEndian.PutUint32(header[8:12], uint32(len(objects)))
	if _, err := hw.Write(header[:]); err != nil {
		return object.ZeroID, fmt.Errorf("packfile: write header: %w", err)
	}

	for _, obj := range objects {
		if err := writeEntry(hw, obj); err != nil {
			return object.ZeroID, err
		}
	}

	var id object.ID
	copy(id[:], hw.h.Sum(nil))
	if _, err := w.Write(id[:]); err != nil {
		return object.ZeroID, fmt.Errorf("packfile: write trailer: %w", err)
	}
	return id, nil
}

// writeEntry writes one undeltified entry: a variable-length type+size
// header followed by the zlib-compressed object body.
func writeEntry(w io.Writer, obj object.Object) error {
	code, err := typeCode(obj.Type())
	if err != nil {
		return err
	}
	raw := obj.Raw()

	size := uint64(len(raw))
	b := byte(code<<4) | byte(size&0x0f)
	size >>= 4
	var hdr []byte
	for size > 0 {
		hdr = append(hdr, b|0x80)
		b = byte(size & 0x7f)
		size >>= 7
	}
	hdr = append(hdr, b)
	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("packfile: write entry header: %w", err)
	}

	zw := zlib.NewWriter(w)
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return fmt.Errorf("packfile: compress entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("packfile: flush entry: %w", err)
	}
	return nil
}

// hashWriter tees writes into a running hash.
type hashWriter struct {
	w io.Writer
	h hash.Hash
}

func (hw *hashWriter) Write(p []byte) (int, error) {
	n, err := hw.w.Write(p)
	hw.h.Write(p[:n])
	return n, err
}
