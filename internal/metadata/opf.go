// Package metadata parses per-book Calibre OPF documents into typed records.
// The parser is strict: a book either yields a complete BookMetadata or a
// typed *Error, and nothing loosely-typed leaks past this boundary.
package metadata

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// OPFName is the metadata document recognized inside a book directory.
const OPFName = "metadata.opf"

// unknownAuthor groups books whose OPF carries no creator entry. Grouping
// must always place a book somewhere, so a missing author is never fatal.
const unknownAuthor = "Unknown"

// ErrorKind classifies why a book's metadata was rejected.
type ErrorKind int

const (
	// KindMalformed means the document could not be parsed as OPF XML.
	KindMalformed ErrorKind = iota
	// KindMissingField means a required field (title, content files) is absent.
	KindMissingField
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindMissingField:
		return "missing required field"
	default:
		return "unknown"
	}
}

// Error is a per-book metadata failure. The scanner records these and skips
// the book; they never abort a scan.
type Error struct {
	Kind ErrorKind
	Dir  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Dir, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ContentFile is one real readable file inside a book directory. Size and
// modification time are captured at scan time and served unchanged by the
// virtual tree.
type ContentFile struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// BookMetadata is the typed record produced from one OPF document plus its
// containing directory.
type BookMetadata struct {
	Title        string
	Authors      []string // document order, primary author first; never empty
	Series       string   // "" when the book is not part of a series
	SeriesIndex  float64
	HasIndex     bool // false sorts the book after all indexed series siblings
	SourceDir    string
	ContentFiles []ContentFile
}

// opfDoc mirrors the subset of the OPF package document we care about.
// Tags match on local element names; the dc:/opf: namespace prefixes vary
// between Calibre versions and are not significant here.
type opfDoc struct {
	XMLName  xml.Name    `xml:"package"`
	Metadata opfMetadata `xml:"metadata"`
}

type opfMetadata struct {
	Titles   []string  `xml:"title"`
	Creators []string  `xml:"creator"`
	Metas    []opfMeta `xml:"meta"`
}

type opfMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

// ParseOPF converts one raw OPF document into a BookMetadata. sourceDir is
// the absolute path of the book directory; content files are discovered
// there as part of parsing.
func ParseOPF(data []byte, sourceDir string) (*BookMetadata, error) {
	var doc opfDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &Error{Kind: KindMalformed, Dir: sourceDir, Err: err}
	}

	book := &BookMetadata{SourceDir: sourceDir}

	for _, t := range doc.Metadata.Titles {
		if t = strings.TrimSpace(t); t != "" {
			book.Title = t
			break
		}
	}
	if book.Title == "" {
		return nil, &Error{Kind: KindMissingField, Dir: sourceDir, Err: errors.New("no title")}
	}

	for _, c := range doc.Metadata.Creators {
		if c = strings.TrimSpace(c); c != "" {
			book.Authors = append(book.Authors, c)
		}
	}
	if len(book.Authors) == 0 {
		book.Authors = []string{unknownAuthor}
	}

	for _, m := range doc.Metadata.Metas {
		switch m.Name {
		case "calibre:series":
			book.Series = strings.TrimSpace(m.Content)
		case "calibre:series_index":
			// An unparseable index is treated as unset, not as an error.
			if idx, err := strconv.ParseFloat(strings.TrimSpace(m.Content), 64); err == nil {
				book.SeriesIndex = idx
				book.HasIndex = true
			}
		}
	}
	if book.Series == "" {
		book.SeriesIndex = 0
		book.HasIndex = false
	}

	files, err := CollectContentFiles(sourceDir)
	if err != nil {
		return nil, err
	}
	book.ContentFiles = files

	return book, nil
}

// sidecars are well-known non-content files shipped next to the OPF.
var sidecars = map[string]struct{}{
	"cover.jpg":   {},
	"cover.jpeg":  {},
	"cover.png":   {},
	"cover.webp":  {},
	"cover.gif":   {},
	"metadata.db": {},
}

// CollectContentFiles lists the readable regular files of a book directory,
// excluding the metadata document itself, hidden files, and cover sidecars.
// Entries come back in lexical order. An empty result is a KindMissingField
// error: a book with nothing to serve has no place in the tree.
func CollectContentFiles(sourceDir string) ([]ContentFile, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, &Error{Kind: KindMissingField, Dir: sourceDir, Err: err}
	}

	var files []ContentFile
	for _, ent := range entries {
		if !ent.Type().IsRegular() || skipEntry(ent.Name()) {
			continue
		}
		info, err := ent.Info()
		if err != nil {
			// File vanished between ReadDir and Stat. Treat as absent.
			continue
		}
		files = append(files, ContentFile{
			Path:    filepath.Join(sourceDir, ent.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	if len(files) == 0 {
		return nil, &Error{Kind: KindMissingField, Dir: sourceDir, Err: errors.New("no content files")}
	}
	return files, nil
}

func skipEntry(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".opf") {
		return true
	}
	_, sidecar := sidecars[lower]
	return sidecar
}
