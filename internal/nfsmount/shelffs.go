// Package nfsmount provides an NFS-based mount backend for shelffs. It
// adapts the virtual tree's Index interface to billy.Filesystem for use
// with willscott/go-nfs, as an alternative to the FUSE mount layer on
// hosts where FUSE is unavailable.
package nfsmount

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/helper/chroot"
	"github.com/ohler55/ojg/oj"

	"github.com/shelffs/shelffs/internal/metadata"
	"github.com/shelffs/shelffs/internal/tree"
)

// CatalogName is the synthetic root file listing the mounted library.
const CatalogName = "_catalog.json"

var errReadOnly = fmt.Errorf("read-only filesystem")

// ShelfFS adapts the virtual tree to billy.Filesystem. The surface is
// strictly read-only: every mutating call fails with errReadOnly.
type ShelfFS struct {
	index       tree.Index
	catalogJSON []byte
	mountTime   time.Time
}

// NewShelfFS creates a billy.Filesystem backed by a tree.Index. The book
// records are rendered once into the _catalog.json virtual file.
func NewShelfFS(index tree.Index, books []metadata.BookMetadata) *ShelfFS {
	entries := make([]map[string]any, 0, len(books))
	for _, b := range books {
		e := map[string]any{
			"title":   b.Title,
			"authors": b.Authors,
			"files":   len(b.ContentFiles),
		}
		if b.Series != "" {
			e["series"] = b.Series
			if b.HasIndex {
				e["series_index"] = b.SeriesIndex
			}
		}
		entries = append(entries, e)
	}
	cj := []byte(oj.JSON(entries, 2))
	cj = append(cj, '\n')

	return &ShelfFS{
		index:       index,
		catalogJSON: cj,
		mountTime:   time.Now(),
	}
}

// --- billy.Basic ---

func (s *ShelfFS) Create(filename string) (billy.File, error) {
	return nil, errReadOnly
}

func (s *ShelfFS) Open(filename string) (billy.File, error) {
	return s.OpenFile(filename, os.O_RDONLY, 0)
}

func (s *ShelfFS) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	filename = cleanPath(filename)

	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
		return nil, errReadOnly
	}

	if filename == "/"+CatalogName {
		return &bytesFile{name: CatalogName, data: s.catalogJSON}, nil
	}

	node, err := s.index.Lookup(filename)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: filename, Err: os.ErrNotExist}
	}
	if node.Mode.IsDir() {
		return nil, &os.PathError{Op: "open", Path: filename, Err: fmt.Errorf("is a directory")}
	}

	f, err := os.Open(node.RealPath)
	if err != nil {
		// Forward the real error verbatim; the client decides what to do.
		return nil, err
	}
	return &realFile{name: filename, f: f}, nil
}

func (s *ShelfFS) Stat(filename string) (os.FileInfo, error) {
	return s.Lstat(filename)
}

func (s *ShelfFS) Rename(oldpath, newpath string) error {
	return errReadOnly
}

func (s *ShelfFS) Remove(filename string) error {
	return errReadOnly
}

func (s *ShelfFS) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// --- billy.TempFile ---

func (s *ShelfFS) TempFile(dir, prefix string) (billy.File, error) {
	return nil, billy.ErrNotSupported
}

// --- billy.Dir ---

func (s *ShelfFS) ReadDir(p string) ([]os.FileInfo, error) {
	p = cleanPath(p)

	node, err := s.index.Lookup(p)
	if err != nil {
		return nil, &os.PathError{Op: "readdir", Path: p, Err: os.ErrNotExist}
	}
	if !node.Mode.IsDir() {
		return nil, &os.PathError{Op: "readdir", Path: p, Err: fmt.Errorf("not a directory")}
	}

	infos := make([]os.FileInfo, 0, len(node.Children)+1)

	// Virtual files at root
	if p == "/" {
		infos = append(infos, &staticFileInfo{
			name:    CatalogName,
			size:    int64(len(s.catalogJSON)),
			mode:    0o444,
			modTime: s.mountTime,
		})
	}

	for _, childPath := range node.Children {
		child, err := s.index.Lookup(childPath)
		if err != nil {
			continue
		}
		infos = append(infos, nodeToFileInfo(child))
	}

	return infos, nil
}

func (s *ShelfFS) MkdirAll(filename string, perm os.FileMode) error {
	return errReadOnly
}

// --- billy.Symlink ---

func (s *ShelfFS) Lstat(filename string) (os.FileInfo, error) {
	filename = cleanPath(filename)

	if filename == "/"+CatalogName {
		return &staticFileInfo{
			name:    CatalogName,
			size:    int64(len(s.catalogJSON)),
			mode:    0o444,
			modTime: s.mountTime,
		}, nil
	}

	node, err := s.index.Lookup(filename)
	if err != nil {
		return nil, &os.PathError{Op: "lstat", Path: filename, Err: os.ErrNotExist}
	}
	if filename == "/" {
		return &staticFileInfo{
			name:    "/",
			mode:    os.ModeDir | 0o555,
			modTime: node.ModTime,
		}, nil
	}
	return nodeToFileInfo(node), nil
}

func (s *ShelfFS) Symlink(target, link string) error {
	return errReadOnly
}

// Readlink never succeeds: the tree contains no symlink nodes.
func (s *ShelfFS) Readlink(link string) (string, error) {
	return "", billy.ErrNotSupported
}

// --- billy.Chroot ---

func (s *ShelfFS) Chroot(p string) (billy.Filesystem, error) {
	return chroot.New(s, p), nil
}

func (s *ShelfFS) Root() string {
	return "/"
}

// --- billy.Capable ---

func (s *ShelfFS) Capabilities() billy.Capability {
	return billy.ReadCapability | billy.SeekCapability
}

// --- internals ---

// cleanPath normalizes a billy path to a clean absolute path.
func cleanPath(p string) string {
	p = filepath.Clean("/" + p)
	if p == "." {
		return "/"
	}
	return p
}

// nodeToFileInfo converts a tree.Node to os.FileInfo. Files report the
// attributes captured from the real file at build time, masked read-only.
func nodeToFileInfo(n *tree.Node) os.FileInfo {
	mode := os.FileMode(0o444)
	size := n.Size
	if n.Mode.IsDir() {
		mode = os.ModeDir | 0o555
		size = 0
	}
	return &staticFileInfo{
		name:    path.Base(n.Path),
		size:    size,
		mode:    mode,
		modTime: n.ModTime,
	}
}

// staticFileInfo implements os.FileInfo with static values.
type staticFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
}

func (fi *staticFileInfo) Name() string       { return fi.name }
func (fi *staticFileInfo) Size() int64        { return fi.size }
func (fi *staticFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi *staticFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *staticFileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *staticFileInfo) Sys() interface{}   { return nil }

// Compile-time interface checks.
var (
	_ billy.Filesystem = (*ShelfFS)(nil)
	_ billy.Capable    = (*ShelfFS)(nil)
)
