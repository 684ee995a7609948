package index

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/odvcencio/gitwire/pkg/object"
)

func testID(b byte) object.ID {
	var id object.ID
	for i := range id {
		id[i] = b
	}
	return id
}

func sampleEntry(path string) Entry {
	return Entry{
		Path:      path,
		CtimeSec:  1718000000,
		CtimeNsec: 123456789,
		MtimeSec:  1718000001,
		MtimeNsec: 987654321,
		Dev:       16777220,
		Ino:       4242,
		Mode:      0o100644,
		UID:       1000,
		GID:       1000,
		Size:      512,
		ID:        testID(7),
	}
}

func TestEntryRoundTripPadding(t *testing.T) {
	// Path lengths 1..16 hit every padding remainder twice.
	for n := 1; n <= 16; n++ {
		path := strings.Repeat("p", n)
		in := sampleEntry(path)

		var buf bytes.Buffer
		if err := writeEntry(&buf, in); err != nil {
			t.Fatalf("writeEntry(%q): %v", path, err)
		}
		if buf.Len()%8 != 0 {
			t.Fatalf("record for %q is %d bytes, not a multiple of 8", path, buf.Len())
		}
		pad := buf.Len() - entryFixedLen - n
		if pad < 1 || pad > 8 {
			t.Fatalf("record for %q has %d padding bytes, want 1..8", path, pad)
		}

		out, err := readEntry(&buf)
		if err != nil {
			t.Fatalf("readEntry(%q): %v", path, err)
		}
		if out != in {
			t.Fatalf("round trip for %q:\n got %+v\nwant %+v", path, out, in)
		}
		if buf.Len() != 0 {
			t.Fatalf("%d bytes left after reading record for %q", buf.Len(), path)
		}
	}
}

func TestEntryFlagsPreserved(t *testing.T) {
	in := sampleEntry("flagged.txt")
	in.Flags = 0x8000 // assume-valid

	var buf bytes.Buffer
	if err := writeEntry(&buf, in); err != nil {
		t.Fatalf("writeEntry: %v", err)
	}
	out, err := readEntry(&buf)
	if err != nil {
		t.Fatalf("readEntry: %v", err)
	}
	if out.Flags != 0x8000 {
		t.Fatalf("flags = %#x, want 0x8000", out.Flags)
	}
}

func TestWriteEntryPathTooLong(t *testing.T) {
	e := sampleEntry(strings.Repeat("x", flagsPathMask+1))
	if err := writeEntry(&bytes.Buffer{}, e); err == nil {
		t.Fatal("expected error for over-long path")
	}
}

func TestReadIndexBadSignature(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("DIRX")
	buf.Write(make([]byte, 8))
	_, err := ReadIndex(&buf)
	var ce *CorruptError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want CorruptError", err)
	}
}

func TestReadIndexUnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("DIRC")
	buf.Write([]byte{0, 0, 0, 3, 0, 0, 0, 0})
	_, err := ReadIndex(&buf)
	var ce *CorruptError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want CorruptError", err)
	}
}

func TestReadIndexVersion1(t *testing.T) {
	var body bytes.Buffer
	if err := writeEntry(&body, sampleEntry("old.txt")); err != nil {
		t.Fatalf("writeEntry: %v", err)
	}

	var buf bytes.Buffer
	buf.WriteString("DIRC")
	buf.Write([]byte{0, 0, 0, 1, 0, 0, 0, 1})
	buf.Write(body.Bytes())

	entries, err := ReadIndex(&buf)
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "old.txt" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestWriteIndexRoundTrip(t *testing.T) {
	in := []Entry{sampleEntry("a.txt"), sampleEntry("dir/b.txt"), sampleEntry("z")}
	in[1].Mode = 0o100755
	in[2].ID = testID(9)

	var buf bytes.Buffer
	if err := WriteIndex(&buf, in); err != nil {
		t.Fatalf("WriteIndex: %v", err)
	}
	raw := buf.Bytes()
	if string(raw[:4]) != "DIRC" {
		t.Fatalf("signature = %q", raw[:4])
	}
	if raw[7] != 2 {
		t.Fatalf("version byte = %d, want 2", raw[7])
	}

	out, err := ReadIndex(&buf)
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d entries, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("entry %d:\n got %+v\nwant %+v", i, out[i], in[i])
		}
	}
}
