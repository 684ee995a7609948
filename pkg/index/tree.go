package index

import (
	"fmt"
	"strings"

	"github.com/odvcencio/gitwire/pkg/object"
)

// TreeBlob is one (path, id, mode) triple fed to CommitTree.
type TreeBlob struct {
	Path string
	ID   object.ID
	Mode uint32
}

// PathSplit splits a /-delimited path into directory and basename. The
// directory part is empty for top-level paths.
func PathSplit(p string) (dir, base string) {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}

// PathJoin joins path segments with slashes, skipping empty ones.
func PathJoin(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}

// CleanupMode reduces a stat mode to one storable in a tree object.
// Symlinks, directories and submodule links keep their fixed special
// modes; everything else becomes a regular file with the canonical 644
// pattern plus any executable bits.
func CleanupMode(mode uint32) uint32 {
	switch mode & 0o170000 {
	case 0o120000:
		return object.ModeSymlink
	case 0o040000:
		return object.ModeDir
	case 0o160000:
		return object.ModeGitlink
	}
	return object.ModeFile | (mode & 0o111)
}

// CommitTree folds flat (path, id, mode) triples into a hierarchy of tree
// objects, persisting each through store, and returns the root tree
// identifier. Modes are expected to already be cleaned. The result is
// deterministic for any input order.
func CommitTree(store object.Store, blobs []TreeBlob) (object.ID, error) {
	type leaf struct {
		mode uint32
		id   object.ID
	}

	// Nested mapping from directory path to basename -> leaf or subdir,
	// with parents created on demand.
	trees := map[string]map[string]any{"": {}}

	var ensureTree func(path string) map[string]any
	ensureTree = func(path string) map[string]any {
		if t, ok := trees[path]; ok {
			return t
		}
		dir, base := PathSplit(path)
		parent := ensureTree(dir)
		t := map[string]any{}
		parent[base] = t
		trees[path] = t
		return t
	}

	for _, b := range blobs {
		dir, base := PathSplit(b.Path)
		if base == "" {
			return object.ZeroID, fmt.Errorf("commit tree: empty basename in %q", b.Path)
		}
		ensureTree(dir)[base] = leaf{mode: b.Mode, id: b.ID}
	}

	var build func(path string) (object.ID, error)
	build = func(path string) (object.ID, error) {
		t := object.NewTree()
		for base, entry := range trees[path] {
			switch v := entry.(type) {
			case map[string]any:
				sub, err := build(PathJoin(path, base))
				if err != nil {
					return object.ZeroID, err
				}
				t.Add(base, object.ModeDir, sub)
			case leaf:
				t.Add(base, v.mode, v.id)
			}
		}
		if err := store.AddObject(t); err != nil {
			return object.ZeroID, fmt.Errorf("commit tree %q: %w", path, err)
		}
		return object.ComputeID(t), nil
	}
	return build("")
}
