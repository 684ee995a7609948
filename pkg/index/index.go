package index

import (
	"bytes"
	"crypto/sha1"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/odvcencio/gitwire/pkg/object"
)

// Index is the in-memory view of one index file, keyed by path. Mutations
// stay in memory until Write.
type Index struct {
	filename string
	byPath   map[string]Entry
}

// New creates an empty Index bound to filename without reading it.
func New(filename string) *Index {
	return &Index{filename: filename, byPath: make(map[string]Entry)}
}

// Open creates an Index bound to filename and reads the current contents.
// A missing file yields an empty index.
func Open(filename string) (*Index, error) {
	ix := New(filename)
	if err := ix.Read(); err != nil {
		return nil, err
	}
	return ix, nil
}

// Read replaces the in-memory contents with the file's. The whole file is
// fed through a running SHA-1; extra trailer bytes before the final
// 20-byte checksum are tolerated, a checksum mismatch is fatal.
func (ix *Index) Read() error {
	f, err := os.Open(ix.filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read index: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}
	if st.Size() < 20 {
		return corruptf("file too short for checksum (%d bytes)", st.Size())
	}

	hr := &hashReader{r: f, h: sha1.New()}
	entries, err := ReadIndex(hr)
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}

	// Unrecognized trailer data (index extensions) still counts toward
	// the checksum.
	trailer := st.Size() - 20 - hr.n
	if trailer < 0 {
		return corruptf("entries overrun the checksum trailer")
	}
	if _, err := io.CopyN(io.Discard, hr, trailer); err != nil {
		return corruptf("truncated trailer: %v", err)
	}

	var got [20]byte
	if _, err := io.ReadFull(f, got[:]); err != nil {
		return corruptf("truncated checksum: %v", err)
	}
	if !bytes.Equal(got[:], hr.h.Sum(nil)) {
		return corruptf("checksum mismatch")
	}

	ix.byPath = make(map[string]Entry, len(entries))
	for _, e := range entries {
		ix.byPath[e.Path] = e
	}
	return nil
}

// Write persists the index atomically: entries sorted by path, version 2,
// a trailing SHA-1 checksum, written to a temp file and renamed into
// place.
func (ix *Index) Write() error {
	dir := filepath.Dir(ix.filename)
	tmp, err := os.CreateTemp(dir, ".index-tmp-*")
	if err != nil {
		return fmt.Errorf("write index: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	hw := &checksumWriter{w: tmp, h: sha1.New()}
	if err := WriteIndex(hw, ix.Entries()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write index: %w", err)
	}
	if _, err := tmp.Write(hw.h.Sum(nil)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write index: checksum: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write index: close: %w", err)
	}
	if err := os.Rename(tmpName, ix.filename); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write index: rename: %w", err)
	}
	return nil
}

// Len returns the number of entries.
func (ix *Index) Len() int {
	return len(ix.byPath)
}

// Get returns the entry for path.
func (ix *Index) Get(path string) (Entry, bool) {
	e, ok := ix.byPath[path]
	return e, ok
}

// Set inserts or replaces the entry for e.Path.
func (ix *Index) Set(e Entry) {
	ix.byPath[e.Path] = e
}

// Delete removes the entry for path.
func (ix *Index) Delete(path string) {
	delete(ix.byPath, path)
}

// Update applies every entry in the batch.
func (ix *Index) Update(entries []Entry) {
	for _, e := range entries {
		ix.Set(e)
	}
}

// Clear removes all entries.
func (ix *Index) Clear() {
	ix.byPath = make(map[string]Entry)
}

// Paths returns all paths, sorted.
func (ix *Index) Paths() []string {
	paths := make([]string, 0, len(ix.byPath))
	for p := range ix.byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Entries returns all entries sorted by path.
func (ix *Index) Entries() []Entry {
	entries := make([]Entry, 0, len(ix.byPath))
	for _, p := range ix.Paths() {
		entries = append(entries, ix.byPath[p])
	}
	return entries
}

// GetSHA1 returns the content hash recorded for path.
func (ix *Index) GetSHA1(path string) (object.ID, bool) {
	e, ok := ix.byPath[path]
	return e.ID, ok
}

// GetMode returns the file mode recorded for path.
func (ix *Index) GetMode(path string) (uint32, bool) {
	e, ok := ix.byPath[path]
	return e.Mode, ok
}

// IterBlobs returns (path, id, mode) triples with cleaned modes, the
// shape CommitTree consumes. Sorted by path.
func (ix *Index) IterBlobs() []TreeBlob {
	blobs := make([]TreeBlob, 0, len(ix.byPath))
	for _, p := range ix.Paths() {
		e := ix.byPath[p]
		blobs = append(blobs, TreeBlob{Path: p, ID: e.ID, Mode: CleanupMode(e.Mode)})
	}
	return blobs
}

// Commit builds a tree from the index contents, persisting every tree
// object through store, and returns the root tree identifier.
func (ix *Index) Commit(store object.Store) (object.ID, error) {
	return CommitTree(store, ix.IterBlobs())
}

// TreeChange is one difference between a tree (the old side) and the
// index (the new side). An empty OldPath marks an added entry, an empty
// NewPath a removed one.
type TreeChange struct {
	OldPath string
	NewPath string
	OldMode uint32
	NewMode uint32
	OldID   object.ID
	NewID   object.ID
}

// ChangesFromTree diffs the index against the flattened contents of the
// tree with the given identifier. Tree entries differing in hash or mode
// (or all of them, with wantUnchanged) come out as changed; tree entries
// absent from the index as removed; index entries absent from the tree as
// added, in unspecified order.
func (ix *Index) ChangesFromTree(store object.Store, tree object.ID, wantUnchanged bool) ([]TreeChange, error) {
	contents, err := store.IterTreeContents(tree)
	if err != nil {
		return nil, fmt.Errorf("changes from tree: %w", err)
	}

	mine := make(map[string]struct{}, len(ix.byPath))
	for p := range ix.byPath {
		mine[p] = struct{}{}
	}

	var changes []TreeChange
	for _, tf := range contents {
		if e, ok := ix.byPath[tf.Path]; ok {
			if wantUnchanged || e.ID != tf.ID || e.Mode != tf.Mode {
				changes = append(changes, TreeChange{
					OldPath: tf.Path, NewPath: tf.Path,
					OldMode: tf.Mode, NewMode: e.Mode,
					OldID: tf.ID, NewID: e.ID,
				})
			}
			delete(mine, tf.Path)
			continue
		}
		changes = append(changes, TreeChange{
			OldPath: tf.Path,
			OldMode: tf.Mode,
			OldID:   tf.ID,
		})
	}
	for p := range mine {
		e := ix.byPath[p]
		changes = append(changes, TreeChange{
			NewPath: p,
			NewMode: e.Mode,
			NewID:   e.ID,
		})
	}
	return changes, nil
}

// hashReader feeds everything read into a running hash and counts bytes.
type hashReader struct {
	r io.Reader
	h hash.Hash
	n int64
}

func (hr *hashReader) Read(p []byte) (int, error) {
	n, err := hr.r.Read(p)
	hr.h.Write(p[:n])
	hr.n += int64(n)
	return n, err
}

// checksumWriter feeds everything written into a running hash.
type checksumWriter struct {
	w io.Writer
	h hash.Hash
}

func (cw *checksumWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.h.Write(p[:n])
	return n, err
}
