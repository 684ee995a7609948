// Package index reads and writes Git's binary staging-area format and
// derives tree objects and tree diffs from it.
package index

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/odvcencio/gitwire/pkg/object"
)

var indexSignature = [4]byte{'D', 'I', 'R', 'C'}

// flagsPathMask covers the low 12 bits of the flags field, which encode
// the path length.
const flagsPathMask = 0x0fff

// entryFixedLen is the byte length of an entry before the path: two 8-byte
// timestamps, six 32-bit stat fields, the 20-byte identifier and 16 bits
// of flags.
const entryFixedLen = 62

// CorruptError reports an index file that cannot be trusted: bad magic,
// an unsupported version or a checksum mismatch. Callers must treat the
// whole file as unusable.
type CorruptError struct {
	Msg string
}

func (e *CorruptError) Error() string {
	return "corrupt index: " + e.Msg
}

func corruptf(format string, args ...any) *CorruptError {
	return &CorruptError{Msg: fmt.Sprintf(format, args...)}
}

// Entry is a single staged file record.
type Entry struct {
	Path      string
	CtimeSec  uint32
	CtimeNsec uint32
	MtimeSec  uint32
	MtimeNsec uint32
	Dev       uint32
	Ino       uint32
	Mode      uint32
	UID       uint32
	GID       uint32
	Size      uint32
	ID        object.ID
	// Flags carries the stage and assume-valid bits. The low 12 bits are
	// the path length on disk; they are recomputed from Path on write.
	Flags uint16
}

// readEntry decodes one fixed-layout record. Padding is computed from the
// actual bytes consumed, so the record length from its own start comes out
// a multiple of 8.
func readEntry(r io.Reader) (Entry, error) {
	var fixed [entryFixedLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return Entry{}, corruptf("truncated entry: %v", err)
	}

	var e Entry
	e.CtimeSec = binary.BigEndian.Uint32(fixed[0:4])
	e.CtimeNsec = binary.BigEndian.Uint32(fixed[4:8])
	e.MtimeSec = binary.BigEndian.Uint32(fixed[8:12])
	e.MtimeNsec = binary.BigEndian.Uint32(fixed[12:16])
	e.Dev = binary.BigEndian.Uint32(fixed[16:20])
	e.Ino = binary.BigEndian.Uint32(fixed[20:24])
	e.Mode = binary.BigEndian.Uint32(fixed[24:28])
	e.UID = binary.BigEndian.Uint32(fixed[28:32])
	e.GID = binary.BigEndian.Uint32(fixed[32:36])
	e.Size = binary.BigEndian.Uint32(fixed[36:40])
	copy(e.ID[:], fixed[40:60])
	flags := binary.BigEndian.Uint16(fixed[60:62])

	pathLen := int(flags & flagsPathMask)
	path := make([]byte, pathLen)
	if _, err := io.ReadFull(r, path); err != nil {
		return Entry{}, corruptf("truncated path (declared %d bytes): %v", pathLen, err)
	}
	e.Path = string(path)
	e.Flags = flags &^ flagsPathMask

	consumed := entryFixedLen + pathLen
	padded := (consumed + 8) &^ 7
	if _, err := io.CopyN(io.Discard, r, int64(padded-consumed)); err != nil {
		return Entry{}, corruptf("truncated entry padding: %v", err)
	}
	return e, nil
}

// writeEntry encodes one record, overwriting the low 12 bits of the flags
// with the actual path length and padding with NUL bytes to the next
// multiple of 8 from the record's start.
func writeEntry(w io.Writer, e Entry) error {
	var fixed [entryFixedLen]byte
	binary.BigEndian.PutUint32(fixed[0:4], e.CtimeSec)
	binary.BigEndian.PutUint32(fixed[4:8], e.CtimeNsec)
	binary.BigEndian.PutUint32(fixed[8:12], e.MtimeSec)
	binary.BigEndian.PutUint32(fixed[12:16], e.MtimeNsec)
	binary.BigEndian.PutUint32(fixed[16:20], e.Dev)
	binary.BigEndian.PutUint32(fixed[20:24], e.Ino)
	binary.BigEndian.PutUint32(fixed[24:28], e.Mode)
	binary.BigEndian.PutUint32(fixed[28:32], e.UID)
	binary.BigEndian.PutUint32(fixed[32:36], e.GID)
	binary.BigEndian.PutUint32(fixed[36:40], e.Size)
	copy(fixed[40:60], e.ID[:])

	pathLen := len(e.Path)
	if pathLen > flagsPathMask {
		return fmt.Errorf("index: path %q longer than %d bytes", e.Path[:32], flagsPathMask)
	}
	flags := (e.Flags &^ flagsPathMask) | uint16(pathLen)
	binary.BigEndian.PutUint16(fixed[60:62], flags)

	if _, err := w.Write(fixed[:]); err != nil {
		return fmt.Errorf("index: write entry: %w", err)
	}
	if _, err := io.WriteString(w, e.Path); err != nil {
		return fmt.Errorf("index: write path: %w", err)
	}

	consumed := entryFixedLen + pathLen
	padded := (consumed + 8) &^ 7
	if _, err := w.Write(make([]byte, padded-consumed)); err != nil {
		return fmt.Errorf("index: write padding: %w", err)
	}
	return nil
}

// ReadIndex decodes the header and the declared number of entries from r.
// Trailer data and the file checksum are the caller's concern.
func ReadIndex(r io.Reader) ([]Entry, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, corruptf("truncated header: %v", err)
	}
	if [4]byte(header[0:4]) != indexSignature {
		return nil, corruptf("bad signature %q", header[0:4])
	}
	version := binary.BigEndian.Uint32(header[4:8])
	if version != 1 && version != 2 {
		return nil, corruptf("unsupported version %d", version)
	}
	count := binary.BigEndian.Uint32(header[8:12])

	var entries []Entry
	for i := uint32(0); i < count; i++ {
		e, err := readEntry(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// WriteIndex encodes entries in the given order. The version field is
// always written as 2.
func WriteIndex(w io.Writer, entries []Entry) error {
	var header [12]byte
	copy(header[0:4], indexSignature[:])
	binary.BigEndian.PutUint32(header[4:8], 2)
	binary.BigEndian.PutUint32(header[8:12], uint32(len(entries)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("index: write header: %w", err)
	}
	for _, e := range entries {
		if err := writeEntry(w, e); err != nil {
			return err
		}
	}
	return nil
}
