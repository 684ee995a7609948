package object

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
)

// TreeEntry is one entry in a tree object: a basename mapped to a mode and
// the identifier of a blob or subtree.
type TreeEntry struct {
	Name string
	Mode uint32
	ID   ID
}

// Tree is a serialized directory listing. Entries are kept sorted by name
// so that identical contents always hash to the same identifier.
type Tree struct {
	entries []TreeEntry
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{}
}

// Add inserts or replaces the entry with the given name.
func (t *Tree) Add(name string, mode uint32, id ID) {
	for i := range t.entries {
		if t.entries[i].Name == name {
			t.entries[i].Mode = mode
			t.entries[i].ID = id
			return
		}
	}
	t.entries = append(t.entries, TreeEntry{Name: name, Mode: mode, ID: id})
}

// Entries returns the entries sorted by name.
func (t *Tree) Entries() []TreeEntry {
	sort.Slice(t.entries, func(i, j int) bool {
		return t.entries[i].Name < t.entries[j].Name
	})
	return t.entries
}

func (t *Tree) Type() Type { return TypeTree }

// Raw serializes the tree in Git's wire format: for each entry an octal
// mode, a space, the name, a NUL and the 20 raw identifier bytes.
func (t *Tree) Raw() []byte {
	var buf bytes.Buffer
	for _, e := range t.Entries() {
		buf.WriteString(strconv.FormatUint(uint64(e.Mode), 8))
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(e.ID[:])
	}
	return buf.Bytes()
}

// ParseTree decodes a serialized tree body.
func ParseTree(raw []byte) (*Tree, error) {
	t := NewTree()
	for len(raw) > 0 {
		sp := bytes.IndexByte(raw, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("parse tree: missing mode separator")
		}
		mode, err := strconv.ParseUint(string(raw[:sp]), 8, 32)
		if err != nil {
			return nil, fmt.Errorf("parse tree: mode: %w", err)
		}
		raw = raw[sp+1:]
		nul := bytes.IndexByte(raw, 0)
		if nul < 0 {
			return nil, fmt.Errorf("parse tree: missing name terminator")
		}
		name := string(raw[:nul])
		raw = raw[nul+1:]
		if len(raw) < 20 {
			return nil, fmt.Errorf("parse tree: truncated id for %q", name)
		}
		id, err := IDFromRaw(raw[:20])
		if err != nil {
			return nil, fmt.Errorf("parse tree: %w", err)
		}
		raw = raw[20:]
		t.Add(name, uint32(mode), id)
	}
	return t, nil
}
