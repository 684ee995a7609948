package object

import (
	"bytes"
	"testing"
)

func testID(b byte) ID {
	var id ID
	for i := range id {
		id[i] = b
	}
	return id
}

func TestParseIDRoundTrip(t *testing.T) {
	const hex = "2b1e2ccb0a5dec24503bddbb1b11b43f4c01163b"
	id, err := ParseID(hex)
	if err != nil {
		t.Fatalf("ParseID: %v", err)
	}
	if id.String() != hex {
		t.Fatalf("String() = %q, want %q", id.String(), hex)
	}
	if string(id.HexBytes()) != hex {
		t.Fatalf("HexBytes() = %q, want %q", id.HexBytes(), hex)
	}
}

func TestParseIDInvalid(t *testing.T) {
	for _, s := range []string{"", "abcd", "zz1e2ccb0a5dec24503bddbb1b11b43f4c01163b"} {
		if _, err := ParseID(s); err == nil {
			t.Fatalf("ParseID(%q): expected error", s)
		}
	}
}

func TestIDFromRaw(t *testing.T) {
	raw := bytes.Repeat([]byte{0xab}, 20)
	id, err := IDFromRaw(raw)
	if err != nil {
		t.Fatalf("IDFromRaw: %v", err)
	}
	if !bytes.Equal(id[:], raw) {
		t.Fatalf("id = %x, want %x", id[:], raw)
	}
	if _, err := IDFromRaw(raw[:19]); err == nil {
		t.Fatal("expected error for short raw id")
	}
}

func TestIsZero(t *testing.T) {
	if !ZeroID.IsZero() {
		t.Fatal("ZeroID.IsZero() = false")
	}
	if testID(1).IsZero() {
		t.Fatal("nonzero id reported zero")
	}
}

func TestComputeIDBlob(t *testing.T) {
	// The well-known hash of the empty blob.
	id := ComputeID(&Blob{})
	if got := id.String(); got != "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391" {
		t.Fatalf("empty blob id = %s", got)
	}
}

func TestTreeOrderIndependent(t *testing.T) {
	a := NewTree()
	a.Add("zebra", ModeFile, testID(1))
	a.Add("apple", ModeExecutable, testID(2))
	a.Add("mango", ModeDir, testID(3))

	b := NewTree()
	b.Add("mango", ModeDir, testID(3))
	b.Add("apple", ModeExecutable, testID(2))
	b.Add("zebra", ModeFile, testID(1))

	if !bytes.Equal(a.Raw(), b.Raw()) {
		t.Fatal("tree serialization depends on insertion order")
	}
	if ComputeID(a) != ComputeID(b) {
		t.Fatal("tree ids differ for identical contents")
	}

	entries := a.Entries()
	if entries[0].Name != "apple" || entries[1].Name != "mango" || entries[2].Name != "zebra" {
		t.Fatalf("entries not sorted: %v", entries)
	}
}

func TestTreeAddReplaces(t *testing.T) {
	tr := NewTree()
	tr.Add("file", ModeFile, testID(1))
	tr.Add("file", ModeExecutable, testID(2))
	entries := tr.Entries()
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].Mode != ModeExecutable || entries[0].ID != testID(2) {
		t.Fatalf("entry not replaced: %+v", entries[0])
	}
}

func TestParseTreeRoundTrip(t *testing.T) {
	tr := NewTree()
	tr.Add("README", ModeFile, testID(4))
	tr.Add("scripts", ModeDir, testID(5))
	tr.Add("run.sh", ModeExecutable, testID(6))

	parsed, err := ParseTree(tr.Raw())
	if err != nil {
		t.Fatalf("ParseTree: %v", err)
	}
	if !bytes.Equal(parsed.Raw(), tr.Raw()) {
		t.Fatal("round trip changed serialization")
	}
}

func TestParseTreeTruncated(t *testing.T) {
	tr := NewTree()
	tr.Add("f", ModeFile, testID(1))
	raw := tr.Raw()
	if _, err := ParseTree(raw[:len(raw)-1]); err == nil {
		t.Fatal("expected error for truncated tree")
	}
}

func TestIterTreeContents(t *testing.T) {
	store := NewMemoryStore()

	sub := NewTree()
	sub.Add("b", ModeFile, testID(1))
	sub.Add("c", ModeExecutable, testID(2))
	if err := store.AddObject(sub); err != nil {
		t.Fatalf("AddObject: %v", err)
	}

	root := NewTree()
	root.Add("a", ModeDir, ComputeID(sub))
	root.Add("top", ModeFile, testID(3))
	if err := store.AddObject(root); err != nil {
		t.Fatalf("AddObject: %v", err)
	}

	got, err := store.IterTreeContents(ComputeID(root))
	if err != nil {
		t.Fatalf("IterTreeContents: %v", err)
	}
	want := []TreeFileEntry{
		{Path: "a/b", Mode: ModeFile, ID: testID(1)},
		{Path: "a/c", Mode: ModeExecutable, ID: testID(2)},
		{Path: "top", Mode: ModeFile, ID: testID(3)},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestIterTreeContentsMissing(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.IterTreeContents(testID(9)); err == nil {
		t.Fatal("expected error for unknown tree")
	}
}

func TestDetermineWantsAll(t *testing.T) {
	store := NewMemoryStore()
	blob := &Blob{Data: []byte("known")}
	if err := store.AddObject(blob); err != nil {
		t.Fatalf("AddObject: %v", err)
	}

	refs := map[string]ID{
		"refs/heads/known":   ComputeID(blob),
		"refs/heads/new":     testID(7),
		"refs/heads/new-too": testID(7),
		"refs/heads/gone":    ZeroID,
		"refs/heads/other":   testID(2),
	}
	wants := store.DetermineWantsAll(refs)
	if len(wants) != 2 {
		t.Fatalf("wants = %v, want 2 distinct ids", wants)
	}
	if wants[0] != testID(2) || wants[1] != testID(7) {
		t.Fatalf("wants not sorted or wrong: %v", wants)
	}
}

func TestMemoryStoreAddPack(t *testing.T) {
	store := NewMemoryStore()

	w, commit := store.AddPack()
	if _, err := w.Write([]byte("PACKdata")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// An empty pack leaves no trace.
	_, commit = store.AddPack()
	if err := commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	packs := store.Packs()
	if len(packs) != 1 || string(packs[0]) != "PACKdata" {
		t.Fatalf("packs = %q", packs)
	}
}
