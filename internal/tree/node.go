// Package tree builds and serves the virtual Author/Series/Title hierarchy.
// A Tree is an immutable snapshot: every scan produces a brand-new one, and
// the mount layers read it without locking.
package tree

import (
	"errors"
	"io/fs"
	"strings"
	"time"
)

// ErrNotFound is returned when a virtual path resolves to nothing.
var ErrNotFound = errors.New("node not found")

// Node is one entry of the virtual hierarchy. Directories are synthetic;
// regular files proxy one real content file without copying it.
type Node struct {
	Path     string      // virtual path relative to the root, no leading slash
	Mode     fs.FileMode // fs.ModeDir for directories, 0 for regular files
	RealPath string      // regular files only: absolute path of the proxied file
	Size     int64       // regular files: mirrored from the real file at build time
	ModTime  time.Time   // files: real mtime; directories: build time
	Children []string    // child virtual paths in listing order (directories only)
}

// Index is the read surface shared by the mount backends. Both *Tree and
// *HotSwap implement it.
type Index interface {
	Lookup(path string) (*Node, error)
	ListChildren(path string) ([]string, error)
}

// Tree is one immutable snapshot of the virtual hierarchy.
type Tree struct {
	nodes   map[string]*Node
	builtAt time.Time
}

// BuiltAt returns the snapshot construction time, used as the synthetic
// timestamp of every directory.
func (t *Tree) BuiltAt() time.Time { return t.builtAt }

// Lookup resolves a slash-separated virtual path. Segment matching is
// exact; a path that continues past a regular file is not found. The root
// path resolves to the root directory node.
func (t *Tree) Lookup(path string) (*Node, error) {
	n, ok := t.nodes[normalize(path)]
	if !ok {
		return nil, ErrNotFound
	}
	return n, nil
}

// ListChildren returns a directory's entries in the deterministic order
// established at build time. Regular files list as empty.
func (t *Tree) ListChildren(path string) ([]string, error) {
	n, err := t.Lookup(path)
	if err != nil {
		return nil, err
	}
	return n.Children, nil
}

// Len reports the number of nodes in the snapshot, the root included.
func (t *Tree) Len() int { return len(t.nodes) }

func normalize(path string) string {
	path = strings.Trim(path, "/")
	if path == "." {
		return ""
	}
	return path
}
