// Package scan discovers book directories beneath a library root and turns
// them into metadata records. A directory directly containing metadata.opf
// is a book and a leaf of the walk; the scanner never descends into it
// looking for further books.
package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shelffs/shelffs/internal/metadata"
)

// Error is a fatal scan failure: the library root itself cannot be read.
// Per-book failures are never an Error; they land in Result.Skipped.
type Error struct {
	Root string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("scan %s: %v", e.Root, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// SkippedDir records a candidate book directory that was omitted, with the
// metadata error that caused it.
type SkippedDir struct {
	Dir string
	Err error
}

// Result is the outcome of one full library walk. Books appear in lexical
// walk order, so repeated scans of an unmodified library are identical.
type Result struct {
	Books    []metadata.BookMetadata
	Skipped  []SkippedDir
	Duration time.Duration
}

// Scanner walks a source library and parses one OPF per book directory.
type Scanner struct {
	log *slog.Logger
}

// New returns a Scanner emitting events to log. A nil log falls back to
// the default logger.
func New(log *slog.Logger) *Scanner {
	if log == nil {
		log = slog.Default()
	}
	return &Scanner{log: log}
}

// Scan walks root and returns every parseable book. Directories whose OPF
// fails to parse are recorded, logged as book_skipped, and omitted; an
// unreadable or missing root aborts with *Error.
func (s *Scanner) Scan(root string) (*Result, error) {
	start := time.Now()

	info, err := os.Stat(root)
	if err != nil {
		return nil, &Error{Root: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &Error{Root: root, Err: errors.New("not a directory")}
	}

	res := &Result{}
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// An unreadable subdirectory loses its books but not the scan.
			s.skip(res, path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		opfPath := filepath.Join(path, metadata.OPFName)
		if _, err := os.Stat(opfPath); err != nil {
			// Not a book directory; keep descending.
			return nil
		}

		data, err := os.ReadFile(opfPath)
		if err != nil {
			s.skip(res, path, err)
			return fs.SkipDir
		}
		book, err := metadata.ParseOPF(data, path)
		if err != nil {
			s.skip(res, path, err)
			return fs.SkipDir
		}
		res.Books = append(res.Books, *book)

		// A book directory is a leaf of the scan.
		return fs.SkipDir
	})
	if walkErr != nil {
		return nil, &Error{Root: root, Err: walkErr}
	}

	res.Duration = time.Since(start)
	s.log.Info("scan_completed", "count", len(res.Books), "duration", res.Duration)
	return res, nil
}

func (s *Scanner) skip(res *Result, dir string, err error) {
	s.log.Warn("book_skipped", "dir", dir, "reason", err.Error())
	res.Skipped = append(res.Skipped, SkippedDir{Dir: dir, Err: err})
}
