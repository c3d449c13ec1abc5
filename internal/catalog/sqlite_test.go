package catalog

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/shelffs/shelffs/internal/metadata"
)

func sampleBooks() []metadata.BookMetadata {
	return []metadata.BookMetadata{
		{
			Title:       "Dune",
			Authors:     []string{"Frank Herbert"},
			Series:      "Dune",
			SeriesIndex: 1,
			HasIndex:    true,
			SourceDir:   "/library/Dune",
			ContentFiles: []metadata.ContentFile{
				{Path: "/library/Dune/Dune.epub", Size: 42, ModTime: time.Unix(1700000000, 0)},
			},
		},
		{
			Title:     "Good Omens",
			Authors:   []string{"Terry Pratchett", "Neil Gaiman"},
			SourceDir: "/library/Good Omens",
			ContentFiles: []metadata.ContentFile{
				{Path: "/library/Good Omens/omens.epub", Size: 7, ModTime: time.Unix(1600000000, 0)},
				{Path: "/library/Good Omens/omens.pdf", Size: 9, ModTime: time.Unix(1600000001, 0)},
			},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	want := sampleBooks()

	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestSaveOverwritesPreviousContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	if err := Save(path, sampleBooks()); err != nil {
		t.Fatal(err)
	}
	one := sampleBooks()[:1]
	if err := Save(path, one); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "Dune" {
		t.Errorf("got %d books, want only Dune", len(got))
	}
}

func TestLoadPreservesUnsetSeriesIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	if err := Save(path, sampleBooks()); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got[1].HasIndex {
		t.Error("Good Omens should have no series index")
	}
	if !got[0].HasIndex || got[0].SeriesIndex != 1 {
		t.Error("Dune should keep series index 1")
	}
}
