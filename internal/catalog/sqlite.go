// Package catalog persists a completed library scan to a single SQLite
// file. A later mount can load the catalog and skip the full library walk,
// which matters for large libraries on slow storage.
package catalog

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/shelffs/shelffs/internal/metadata"
)

const schema = `
CREATE TABLE IF NOT EXISTS books (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	title        TEXT NOT NULL,
	series       TEXT NOT NULL DEFAULT '',
	series_index REAL,
	source_dir   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS authors (
	book_id  INTEGER NOT NULL REFERENCES books(id),
	position INTEGER NOT NULL,
	name     TEXT NOT NULL,
	PRIMARY KEY (book_id, position)
);
CREATE TABLE IF NOT EXISTS files (
	book_id  INTEGER NOT NULL REFERENCES books(id),
	path     TEXT NOT NULL,
	size     INTEGER NOT NULL,
	mod_time INTEGER NOT NULL
);
`

// Save writes the scanned books to path, replacing any previous contents.
func Save(path string, books []metadata.BookMetadata) (err error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create catalog schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin catalog write: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op once committed

	for _, table := range []string{"files", "authors", "books"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, b := range books {
		var idx any
		if b.HasIndex {
			idx = b.SeriesIndex
		}
		res, err := tx.Exec(
			"INSERT INTO books (title, series, series_index, source_dir) VALUES (?, ?, ?, ?)",
			b.Title, b.Series, idx, b.SourceDir,
		)
		if err != nil {
			return fmt.Errorf("insert book %q: %w", b.Title, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("book id for %q: %w", b.Title, err)
		}

		for i, a := range b.Authors {
			if _, err := tx.Exec(
				"INSERT INTO authors (book_id, position, name) VALUES (?, ?, ?)",
				id, i, a,
			); err != nil {
				return fmt.Errorf("insert author %q: %w", a, err)
			}
		}
		for _, f := range b.ContentFiles {
			if _, err := tx.Exec(
				"INSERT INTO files (book_id, path, size, mod_time) VALUES (?, ?, ?, ?)",
				id, f.Path, f.Size, f.ModTime.UnixNano(),
			); err != nil {
				return fmt.Errorf("insert file %q: %w", f.Path, err)
			}
		}
	}

	return tx.Commit()
}

// Load reads a catalog back in the order it was written, reproducing the
// scanner's output for the tree builder.
func Load(path string) ([]metadata.BookMetadata, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.Query("SELECT id, title, series, series_index, source_dir FROM books ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("read books: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var books []metadata.BookMetadata
	var ids []int64
	for rows.Next() {
		var (
			id  int64
			b   metadata.BookMetadata
			idx sql.NullFloat64
		)
		if err := rows.Scan(&id, &b.Title, &b.Series, &idx, &b.SourceDir); err != nil {
			return nil, fmt.Errorf("scan book row: %w", err)
		}
		if idx.Valid {
			b.SeriesIndex = idx.Float64
			b.HasIndex = true
		}
		books = append(books, b)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read books: %w", err)
	}

	for i, id := range ids {
		if books[i].Authors, err = loadAuthors(db, id); err != nil {
			return nil, err
		}
		if books[i].ContentFiles, err = loadFiles(db, id); err != nil {
			return nil, err
		}
	}
	return books, nil
}

func loadAuthors(db *sql.DB, bookID int64) ([]string, error) {
	rows, err := db.Query("SELECT name FROM authors WHERE book_id = ? ORDER BY position", bookID)
	if err != nil {
		return nil, fmt.Errorf("read authors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var authors []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan author row: %w", err)
		}
		authors = append(authors, name)
	}
	return authors, rows.Err()
}

func loadFiles(db *sql.DB, bookID int64) ([]metadata.ContentFile, error) {
	rows, err := db.Query("SELECT path, size, mod_time FROM files WHERE book_id = ? ORDER BY rowid", bookID)
	if err != nil {
		return nil, fmt.Errorf("read files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []metadata.ContentFile
	for rows.Next() {
		var (
			f     metadata.ContentFile
			nanos int64
		)
		if err := rows.Scan(&f.Path, &f.Size, &nanos); err != nil {
			return nil, fmt.Errorf("scan file row: %w", err)
		}
		f.ModTime = time.Unix(0, nanos)
		files = append(files, f)
	}
	return files, rows.Err()
}
