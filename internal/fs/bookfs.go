// Package fs exposes the virtual tree through FUSE via cgofuse. The whole
// surface is read-only: directory structure is answered from the immutable
// tree snapshot, file bytes are delegated to the real files underneath.
package fs

import (
	"fmt"
	"io"
	"os"
	"path"
	"sync"

	"github.com/winfsp/cgofuse/fuse"

	"github.com/shelffs/shelffs/internal/tree"
)

// writeFlags are the open flags that request mutation of the file.
const writeFlags = fuse.O_WRONLY | fuse.O_RDWR | fuse.O_APPEND | fuse.O_CREAT | fuse.O_TRUNC

// BookFS implements the FUSE interface from cgofuse over a tree.Index.
// Every open handle owns a private descriptor on the real file; handles are
// never shared between opens.
type BookFS struct {
	fuse.FileSystemBase
	index tree.Index

	mu      sync.Mutex
	handles map[uint64]*os.File
	nextFH  uint64
}

func New(index tree.Index) *BookFS {
	return &BookFS{
		index:   index,
		handles: make(map[uint64]*os.File),
	}
}

// Getattr answers synthetic attributes for directories and mirrored real
// attributes (masked read-only) for files.
func (b *BookFS) Getattr(p string, stat *fuse.Stat_t, fh uint64) int {
	node, err := b.index.Lookup(p)
	if err != nil {
		return -fuse.ENOENT
	}

	ts := fuse.NewTimespec(node.ModTime)
	stat.Atim, stat.Mtim, stat.Ctim, stat.Birthtim = ts, ts, ts, ts

	if node.Mode.IsDir() {
		stat.Mode = fuse.S_IFDIR | 0o555
		stat.Nlink = b.dirNlink(node)
		return 0
	}

	stat.Mode = fuse.S_IFREG | 0o444
	stat.Nlink = 1
	stat.Size = node.Size
	return 0
}

// dirNlink is 2 plus one link per child directory, POSIX convention.
func (b *BookFS) dirNlink(node *tree.Node) uint32 {
	n := uint32(2)
	for _, child := range node.Children {
		if c, err := b.index.Lookup(child); err == nil && c.Mode.IsDir() {
			n++
		}
	}
	return n
}

// Readdir lists ".", "..", then the children in the deterministic order
// established at build time.
func (b *BookFS) Readdir(p string, fill func(name string, stat *fuse.Stat_t, ofst int64) bool, ofst int64, fh uint64) int {
	node, err := b.index.Lookup(p)
	if err != nil {
		return -fuse.ENOENT
	}
	if !node.Mode.IsDir() {
		return -fuse.ENOTDIR
	}

	fill(".", nil, 0)
	fill("..", nil, 0)
	for _, child := range node.Children {
		fill(path.Base(child), nil, 0)
	}
	return 0
}

// Open resolves the path to a real file and opens a private descriptor for
// it. Write access is refused: the mount is read-only.
func (b *BookFS) Open(p string, flags int) (int, uint64) {
	node, err := b.index.Lookup(p)
	if err != nil {
		return -fuse.ENOENT, ^uint64(0)
	}
	if node.Mode.IsDir() {
		return -fuse.EISDIR, ^uint64(0)
	}
	if flags&writeFlags != 0 {
		return -fuse.EACCES, ^uint64(0)
	}

	f, err := os.Open(node.RealPath)
	if err != nil {
		return -errnoFor(err), ^uint64(0)
	}

	b.mu.Lock()
	b.nextFH++
	fh := b.nextFH
	b.handles[fh] = f
	b.mu.Unlock()
	return 0, fh
}

// Read forwards to the real descriptor at the given offset. Zero bytes at
// or beyond end of file is a normal result, never an error.
func (b *BookFS) Read(p string, buff []byte, ofst int64, fh uint64) int {
	b.mu.Lock()
	f, ok := b.handles[fh]
	b.mu.Unlock()
	if !ok {
		return -fuse.EBADF
	}

	n, err := f.ReadAt(buff, ofst)
	if err != nil && err != io.EOF {
		return -fuse.EIO
	}
	return n
}

// Release closes the real descriptor. Releasing an already-released handle
// is a no-op.
func (b *BookFS) Release(p string, fh uint64) int {
	b.mu.Lock()
	f, ok := b.handles[fh]
	delete(b.handles, fh)
	b.mu.Unlock()
	if ok {
		_ = f.Close()
	}
	return 0
}

// Readlink always fails: the tree contains no symlink nodes.
func (b *BookFS) Readlink(p string) (int, string) {
	return -fuse.EINVAL, ""
}

// The mount is read-only; every mutating operation is refused outright.

func (b *BookFS) Mknod(p string, mode uint32, dev uint64) int  { return -fuse.EROFS }
func (b *BookFS) Mkdir(p string, mode uint32) int              { return -fuse.EROFS }
func (b *BookFS) Unlink(p string) int                          { return -fuse.EROFS }
func (b *BookFS) Rmdir(p string) int                           { return -fuse.EROFS }
func (b *BookFS) Rename(oldpath, newpath string) int           { return -fuse.EROFS }
func (b *BookFS) Chmod(p string, mode uint32) int              { return -fuse.EROFS }
func (b *BookFS) Truncate(p string, size int64, fh uint64) int { return -fuse.EROFS }
func (b *BookFS) Write(p string, buff []byte, ofst int64, fh uint64) int {
	return -fuse.EROFS
}

// MountOptions builds the cgofuse option list for a read-only mount owned
// by the current user.
func MountOptions(allowOther bool) []string {
	opts := []string{
		"-o", "ro",
		"-o", fmt.Sprintf("uid=%d", os.Getuid()),
		"-o", fmt.Sprintf("gid=%d", os.Getgid()),
	}
	if allowOther {
		opts = append(opts, "-o", "allow_other")
	}
	return opts
}

func errnoFor(err error) int {
	switch {
	case os.IsNotExist(err):
		return fuse.ENOENT
	case os.IsPermission(err):
		return fuse.EACCES
	default:
		return fuse.EIO
	}
}
