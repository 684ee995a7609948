package packfile

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"io"
	"testing"

	"github.com/klauspost/compress/zlib"

	"github.com/odvcencio/gitwire/pkg/object"
)

// readEntry decodes the variable-length type+size header and inflates the
// body that follows.
func readEntry(t *testing.T, r *bytes.Reader) (byte, []byte) {
	t.Helper()

	b, err := r.ReadByte()
	if err != nil {
		t.Fatalf("read entry header: %v", err)
	}
	code := (b >> 4) & 0x07
	size := uint64(b & 0x0f)
	shift := uint(4)
	for b&0x80 != 0 {
		b, err = r.ReadByte()
		if err != nil {
			t.Fatalf("read entry header: %v", err)
		}
		size |= uint64(b&0x7f) << shift
		shift += 7
	}

	zr, err := zlib.NewReader(r)
	if err != nil {
		t.Fatalf("zlib.NewReader: %v", err)
	}
	body, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("inflate entry: %v", err)
	}
	zr.Close()
	if uint64(len(body)) != size {
		t.Fatalf("entry size header = %d, body = %d bytes", size, len(body))
	}
	return code, body
}

func TestWritePack(t *testing.T) {
	blob := &object.Blob{Data: []byte("hello pack\n")}
	tree := object.NewTree()
	tree.Add("hello", object.ModeFile, object.ComputeID(blob))

	var buf bytes.Buffer
	id, err := WritePack(&buf, []object.Object{blob, tree})
	if err != nil {
		t.Fatalf("WritePack: %v", err)
	}

	raw := buf.Bytes()
	if len(raw) < 32 {
		t.Fatalf("pack too short: %d bytes", len(raw))
	}
	if string(raw[:4]) != "PACK" {
		t.Fatalf("magic = %q", raw[:4])
	}
	if v := binary.BigEndian.Uint32(raw[4:8]); v != 2 {
		t.Fatalf("version = %d, want 2", v)
	}
	if n := binary.BigEndian.Uint32(raw[8:12]); n != 2 {
		t.Fatalf("object count = %d, want 2", n)
	}

	// Trailer is the SHA-1 of everything before it, and is also the
	// returned identifier.
	sum := sha1.Sum(raw[:len(raw)-20])
	if !bytes.Equal(sum[:], raw[len(raw)-20:]) {
		t.Fatal("trailer checksum mismatch")
	}
	if !bytes.Equal(id[:], sum[:]) {
		t.Fatalf("returned id = %s, want %x", id, sum)
	}

	r := bytes.NewReader(raw[12 : len(raw)-20])
	code, body := readEntry(t, r)
	if code != typeBlob {
		t.Fatalf("first entry type = %d, want %d", code, typeBlob)
	}
	if !bytes.Equal(body, blob.Data) {
		t.Fatalf("blob body = %q", body)
	}
	code, body = readEntry(t, r)
	if code != typeTree {
		t.Fatalf("second entry type = %d, want %d", code, typeTree)
	}
	if !bytes.Equal(body, tree.Raw()) {
		t.Fatal("tree body mismatch")
	}
	if r.Len() != 0 {
		t.Fatalf("%d bytes left between entries and trailer", r.Len())
	}
}

func TestWritePackLargeObject(t *testing.T) {
	// Large enough that the size header needs continuation bytes.
	blob := &object.Blob{Data: bytes.Repeat([]byte("x"), 100000)}

	var buf bytes.Buffer
	if _, err := WritePack(&buf, []object.Object{blob}); err != nil {
		t.Fatalf("WritePack: %v", err)
	}

	raw := buf.Bytes()
	r := bytes.NewReader(raw[12 : len(raw)-20])
	code, body := readEntry(t, r)
	if code != typeBlob {
		t.Fatalf("entry type = %d, want %d", code, typeBlob)
	}
	if !bytes.Equal(body, blob.Data) {
		t.Fatal("body mismatch after inflate")
	}
}

func TestWritePackEmpty(t *testing.T) {
	var buf bytes.Buffer
	if _, err := WritePack(&buf, nil); err != nil {
		t.Fatalf("WritePack: %v", err)
	}
	raw := buf.Bytes()
	if len(raw) != 32 {
		t.Fatalf("empty pack = %d bytes, want 32", len(raw))
	}
	if n := binary.BigEndian.Uint32(raw[8:12]); n != 0 {
		t.Fatalf("object count = %d, want 0", n)
	}
}
