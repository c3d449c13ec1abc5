package tree

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shelffs/shelffs/internal/metadata"
)

// Build constructs an immutable snapshot from scanned book records.
// Grouping, ordering, and collision suffixes are all deterministic:
// identical input yields an identical tree.
func Build(books []metadata.BookMetadata) *Tree {
	t := &Tree{
		nodes:   make(map[string]*Node),
		builtAt: time.Now(),
	}
	root := &Node{Mode: fs.ModeDir, ModTime: t.builtAt}
	t.nodes[""] = root

	// Group by primary author. Matching is exact and case-sensitive on the
	// sanitized name.
	byAuthor := make(map[string][]metadata.BookMetadata)
	for _, b := range books {
		if len(b.Authors) == 0 {
			continue
		}
		author := Sanitize(b.Authors[0])
		byAuthor[author] = append(byAuthor[author], b)
	}

	authors := make([]string, 0, len(byAuthor))
	for a := range byAuthor {
		authors = append(authors, a)
	}
	sort.Strings(authors)

	for _, author := range authors {
		authorNode := t.addDir(root, author)
		t.populateAuthor(authorNode, byAuthor[author])
	}
	return t
}

// populateAuthor lays out one author directory: series subdirectories
// first (ordered by name), then series-less books (ordered by title).
func (t *Tree) populateAuthor(parent *Node, books []metadata.BookMetadata) {
	bySeries := make(map[string][]metadata.BookMetadata)
	var standalone []metadata.BookMetadata
	for _, b := range books {
		if b.Series == "" {
			standalone = append(standalone, b)
		} else {
			name := Sanitize(b.Series)
			bySeries[name] = append(bySeries[name], b)
		}
	}

	series := make([]string, 0, len(bySeries))
	for s := range bySeries {
		series = append(series, s)
	}
	sort.Slice(series, func(i, j int) bool { return lessName(series[i], series[j]) })

	for _, name := range series {
		group := bySeries[name]
		sortSeries(group)
		seriesNode := t.addDir(parent, name)
		for _, b := range group {
			bookName := Sanitize(b.Title)
			if b.HasIndex {
				// The zero-padded prefix makes a plain lexical listing
				// follow series order.
				bookName = indexPrefix(b.SeriesIndex) + " - " + bookName
			}
			t.populateBook(t.addDir(seriesNode, bookName), b)
		}
	}

	sort.SliceStable(standalone, func(i, j int) bool {
		return lessName(standalone[i].Title, standalone[j].Title)
	})
	for _, b := range standalone {
		t.populateBook(t.addDir(parent, Sanitize(b.Title)), b)
	}
}

func (t *Tree) populateBook(parent *Node, b metadata.BookMetadata) {
	for _, f := range b.ContentFiles {
		t.addFile(parent, filepath.Base(f.Path), f)
	}
}

// addDir inserts a directory under parent, disambiguating sibling name
// collisions with a numeric suffix in insertion order.
func (t *Tree) addDir(parent *Node, name string) *Node {
	n := &Node{
		Path:    childPath(parent.Path, t.disambiguate(parent, name)),
		Mode:    fs.ModeDir,
		ModTime: t.builtAt,
	}
	t.nodes[n.Path] = n
	parent.Children = append(parent.Children, n.Path)
	return n
}

func (t *Tree) addFile(parent *Node, name string, f metadata.ContentFile) {
	n := &Node{
		Path:     childPath(parent.Path, t.disambiguate(parent, name)),
		RealPath: f.Path,
		Size:     f.Size,
		ModTime:  f.ModTime,
	}
	t.nodes[n.Path] = n
	parent.Children = append(parent.Children, n.Path)
}

// disambiguate appends -2, -3, ... until the name is unique among the
// parent's existing children. Insertion order is the stable order the
// builder establishes, so suffixes are deterministic.
func (t *Tree) disambiguate(parent *Node, name string) string {
	candidate := name
	for i := 2; ; i++ {
		if _, taken := t.nodes[childPath(parent.Path, candidate)]; !taken {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", name, i)
	}
}

func childPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// sortSeries orders a series group: indexed books ascend by index, unindexed
// books follow, and case-insensitive title is the stable tiebreak throughout.
func sortSeries(books []metadata.BookMetadata) {
	sort.SliceStable(books, func(i, j int) bool {
		a, b := books[i], books[j]
		switch {
		case a.HasIndex && !b.HasIndex:
			return true
		case !a.HasIndex && b.HasIndex:
			return false
		case a.HasIndex && b.HasIndex && a.SeriesIndex != b.SeriesIndex:
			return a.SeriesIndex < b.SeriesIndex
		}
		return lessName(a.Title, b.Title)
	})
}

// lessName compares case-insensitively, falling back to a case-sensitive
// comparison so equal folds still order deterministically.
func lessName(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}

// indexPrefix renders a series index with a two-digit integer part:
// 1 -> "01", 2.5 -> "02.5", 12 -> "12".
func indexPrefix(idx float64) string {
	s := strconv.FormatFloat(idx, 'f', -1, 64)
	intLen := strings.IndexByte(s, '.')
	if intLen < 0 {
		intLen = len(s)
	}
	if intLen < 2 {
		s = strings.Repeat("0", 2-intLen) + s
	}
	return s
}

// Sanitize makes a metadata string safe as a single path segment: letters,
// digits, and "-_.() " survive, everything else (path separators included)
// becomes '_', and whitespace collapses to single spaces. The rule keeps
// distinct inputs distinct in practice; the builder's numeric suffix covers
// the remaining collisions.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case strings.ContainsRune("-_.() ", r):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	switch out {
	case "", ".", "..":
		return "_"
	}
	return out
}
