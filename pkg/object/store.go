package object

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
)

// TreeFileEntry is one file reached by flattening a tree: its full
// slash-separated path, tree mode and object identifier.
type TreeFileEntry struct {
	Path string
	Mode uint32
	ID   ID
}

// Store is the object-database contract the protocol engine and the index
// layer consume. Implementations must serialize their own concurrent
// writers; callers run one fetch or push against a store at a time.
type Store interface {
	// AddObject stores a single object.
	AddObject(obj Object) error
	// AddPack returns a sink for raw pack bytes and a commit callback to
	// invoke once the complete pack has been written.
	AddPack() (io.Writer, func() error)
	// IterTreeContents flattens the tree with the given identifier into
	// (path, mode, id) entries for every file it reaches.
	IterTreeContents(tree ID) ([]TreeFileEntry, error)
	// DetermineWantsAll selects every advertised identifier that is not
	// already present and not the zero sentinel.
	DetermineWantsAll(refs map[string]ID) []ID
}

// MemoryStore is an in-memory Store. It backs tests and one-shot CLI
// operations; received packs are retained as raw byte streams.
type MemoryStore struct {
	objects map[ID]Object
	packs   [][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[ID]Object)}
}

// AddObject stores obj keyed by its content hash.
func (s *MemoryStore) AddObject(obj Object) error {
	s.objects[ComputeID(obj)] = obj
	return nil
}

// Get returns the object with the given identifier, if present.
func (s *MemoryStore) Get(id ID) (Object, bool) {
	obj, ok := s.objects[id]
	return obj, ok
}

// Has reports whether the store contains the identifier.
func (s *MemoryStore) Has(id ID) bool {
	_, ok := s.objects[id]
	return ok
}

// Len returns the number of loose objects in the store.
func (s *MemoryStore) Len() int {
	return len(s.objects)
}

// AddPack buffers incoming pack data; the commit callback retains the
// buffered bytes. An empty pack is discarded.
func (s *MemoryStore) AddPack() (io.Writer, func() error) {
	var buf bytes.Buffer
	commit := func() error {
		if buf.Len() > 0 {
			s.packs = append(s.packs, buf.Bytes())
		}
		return nil
	}
	return &buf, commit
}

// Packs returns the raw pack streams committed so far.
func (s *MemoryStore) Packs() [][]byte {
	return s.packs
}

// IterTreeContents flattens the tree recursively. Results are sorted by
// path.
func (s *MemoryStore) IterTreeContents(tree ID) ([]TreeFileEntry, error) {
	var out []TreeFileEntry
	if err := s.walkTree(tree, "", &out); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *MemoryStore) walkTree(id ID, prefix string, out *[]TreeFileEntry) error {
	obj, ok := s.objects[id]
	if !ok {
		return fmt.Errorf("tree %s not found", id)
	}
	t, ok := obj.(*Tree)
	if !ok {
		return fmt.Errorf("object %s is a %s, not a tree", id, obj.Type())
	}
	for _, e := range t.Entries() {
		full := e.Name
		if prefix != "" {
			full = path.Join(prefix, e.Name)
		}
		if e.Mode == ModeDir {
			if err := s.walkTree(e.ID, full, out); err != nil {
				return err
			}
			continue
		}
		*out = append(*out, TreeFileEntry{Path: full, Mode: e.Mode, ID: e.ID})
	}
	return nil
}

// DetermineWantsAll selects every advertised identifier the store is
// missing. Ref name order does not affect the result; wants are sorted by
// identifier for determinism.
func (s *MemoryStore) DetermineWantsAll(refs map[string]ID) []ID {
	seen := make(map[ID]struct{})
	var wants []ID
	for _, id := range refs {
		if id.IsZero() || s.Has(id) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		wants = append(wants, id)
	}
	sort.Slice(wants, func(i, j int) bool {
		return bytes.Compare(wants[i][:], wants[j][:]) < 0
	})
	return wants
}
