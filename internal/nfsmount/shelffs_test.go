package nfsmount

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/ohler55/ojg/oj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelffs/shelffs/internal/metadata"
	"github.com/shelffs/shelffs/internal/tree"
)

func newTestShelfFS(t *testing.T) *ShelfFS {
	t.Helper()
	dir := t.TempDir()
	real := filepath.Join(dir, "Dune.epub")
	require.NoError(t, os.WriteFile(real, []byte("arrakis"), 0o644))

	books := []metadata.BookMetadata{{
		Title:       "Dune",
		Authors:     []string{"Frank Herbert"},
		Series:      "Dune",
		SeriesIndex: 1,
		HasIndex:    true,
		SourceDir:   dir,
		ContentFiles: []metadata.ContentFile{{
			Path:    real,
			Size:    int64(len("arrakis")),
			ModTime: time.Unix(1700000000, 0),
		}},
	}}
	return NewShelfFS(tree.NewHotSwap(tree.Build(books)), books)
}

const bookFile = "/Frank Herbert/Dune/01 - Dune/Dune.epub"

func TestStatRoot(t *testing.T) {
	sfs := newTestShelfFS(t)

	info, err := sfs.Stat("/")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, "/", info.Name())
}

func TestStatCatalogJSON(t *testing.T) {
	sfs := newTestShelfFS(t)

	info, err := sfs.Stat("/" + CatalogName)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
	assert.Equal(t, CatalogName, info.Name())
	assert.True(t, info.Size() > 0)
}

func TestStatFileAndDir(t *testing.T) {
	sfs := newTestShelfFS(t)

	info, err := sfs.Stat(bookFile)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
	assert.Equal(t, "Dune.epub", info.Name())
	assert.Equal(t, int64(len("arrakis")), info.Size())
	assert.Equal(t, os.FileMode(0o444), info.Mode())

	info, err = sfs.Stat("/Frank Herbert/Dune")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = sfs.Stat("/missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadDirRootIncludesCatalog(t *testing.T) {
	sfs := newTestShelfFS(t)

	infos, err := sfs.ReadDir("/")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, CatalogName, infos[0].Name())
	assert.Equal(t, "Frank Herbert", infos[1].Name())
}

func TestReadDirSeriesOrder(t *testing.T) {
	sfs := newTestShelfFS(t)

	infos, err := sfs.ReadDir("/Frank Herbert/Dune")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "01 - Dune", infos[0].Name())
}

func TestOpenAndReadRealFile(t *testing.T) {
	sfs := newTestShelfFS(t)

	f, err := sfs.Open(bookFile)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "arrakis", string(data))

	buf := make([]byte, 3)
	n, err := f.ReadAt(buf, 4)
	if err != nil {
		require.ErrorIs(t, err, io.EOF)
	}
	assert.Equal(t, "kis", string(buf[:n]))
}

func TestCatalogJSONIsValid(t *testing.T) {
	sfs := newTestShelfFS(t)

	f, err := sfs.Open("/" + CatalogName)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)

	parsed, err := oj.Parse(data)
	require.NoError(t, err)
	entries, ok := parsed.([]any)
	require.True(t, ok)
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]any)
	assert.Equal(t, "Dune", entry["title"])
	assert.Equal(t, "Dune", entry["series"])
}

func TestWritesAreRefused(t *testing.T) {
	sfs := newTestShelfFS(t)

	_, err := sfs.Create("/new.txt")
	assert.ErrorIs(t, err, errReadOnly)

	_, err = sfs.OpenFile(bookFile, os.O_RDWR, 0)
	assert.ErrorIs(t, err, errReadOnly)

	assert.ErrorIs(t, sfs.Rename(bookFile, "/x"), errReadOnly)
	assert.ErrorIs(t, sfs.Remove(bookFile), errReadOnly)
	assert.ErrorIs(t, sfs.MkdirAll("/a/b", 0o755), errReadOnly)

	f, err := sfs.Open(bookFile)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	_, err = f.Write([]byte("x"))
	assert.ErrorIs(t, err, errReadOnly)
}

func TestCapabilitiesReadOnly(t *testing.T) {
	sfs := newTestShelfFS(t)

	caps := sfs.Capabilities()
	assert.Equal(t, billy.ReadCapability|billy.SeekCapability, caps)
}

func TestRealFileCloseIdempotent(t *testing.T) {
	sfs := newTestShelfFS(t)

	f, err := sfs.Open(bookFile)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
}
