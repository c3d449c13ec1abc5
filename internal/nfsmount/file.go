package nfsmount

import (
	"io"
	"os"

	billy "github.com/go-git/go-billy/v5"
)

// realFile proxies reads through to the real content file. Every open gets
// its own descriptor; descriptors are never shared between handles.
type realFile struct {
	name string
	f    *os.File
}

func (f *realFile) Name() string { return f.name }

func (f *realFile) Read(p []byte) (int, error) {
	if f.f == nil {
		return 0, os.ErrClosed
	}
	return f.f.Read(p)
}

func (f *realFile) ReadAt(p []byte, off int64) (int, error) {
	if f.f == nil {
		return 0, os.ErrClosed
	}
	return f.f.ReadAt(p, off)
}

func (f *realFile) Seek(offset int64, whence int) (int64, error) {
	if f.f == nil {
		return 0, os.ErrClosed
	}
	return f.f.Seek(offset, whence)
}

func (f *realFile) Write([]byte) (int, error) { return 0, errReadOnly }
func (f *realFile) Truncate(int64) error      { return errReadOnly }
func (f *realFile) Lock() error               { return nil }
func (f *realFile) Unlock() error             { return nil }

// Close releases the real descriptor. Closing twice is a no-op.
func (f *realFile) Close() error {
	if f.f == nil {
		return nil
	}
	err := f.f.Close()
	f.f = nil
	return err
}

// bytesFile implements billy.File backed by a static byte slice. Used for
// the synthetic _catalog.json root file.
type bytesFile struct {
	name string
	data []byte
	pos  int64
}

func (f *bytesFile) Name() string { return f.name }

func (f *bytesFile) Read(p []byte) (int, error) {
	if f.pos >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	f.pos += int64(n)
	if f.pos >= int64(len(f.data)) {
		return n, io.EOF
	}
	return n, nil
}

func (f *bytesFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *bytesFile) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = f.pos + offset
	case io.SeekEnd:
		newPos = int64(len(f.data)) + offset
	}
	if newPos < 0 {
		newPos = 0
	}
	f.pos = newPos
	return f.pos, nil
}

func (f *bytesFile) Write([]byte) (int, error) { return 0, errReadOnly }
func (f *bytesFile) Truncate(int64) error      { return errReadOnly }
func (f *bytesFile) Lock() error               { return nil }
func (f *bytesFile) Unlock() error             { return nil }
func (f *bytesFile) Close() error              { return nil }

// Verify file types satisfy billy.File.
var (
	_ billy.File = (*realFile)(nil)
	_ billy.File = (*bytesFile)(nil)
)
