// Package store persists projects, versions, pages and images in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/dochost/internal/derrors"
)

// Store wraps the SQLite database holding the documentation records.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at dbPath and ensures the schema.
// Use ":memory:" for an in-memory database in tests.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection sidesteps SQLITE_BUSY under the write-heavy
	// import path and keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return err
	}
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		classifiers TEXT NOT NULL DEFAULT '',
		latest_version_id TEXT,
		created_at INTEGER NOT NULL,
		modified_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS versions (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		label TEXT NOT NULL,
		sphinx_version TEXT NOT NULL DEFAULT '',
		head_page_id TEXT,
		global_toc TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		modified_at INTEGER NOT NULL,
		UNIQUE(project_id, label)
	);
	CREATE TABLE IF NOT EXISTS pages (
		id TEXT PRIMARY KEY,
		version_id TEXT NOT NULL REFERENCES versions(id) ON DELETE CASCADE,
		relative_path TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		orig_body TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		orig_local_toc TEXT NOT NULL DEFAULT '',
		local_toc TEXT NOT NULL DEFAULT '',
		parent_id TEXT,
		next_id TEXT UNIQUE,
		searchable INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		modified_at INTEGER NOT NULL,
		UNIQUE(version_id, relative_path)
	);
	CREATE TABLE IF NOT EXISTS images (
		id TEXT PRIMARY KEY,
		version_id TEXT NOT NULL REFERENCES versions(id) ON DELETE CASCADE,
		orig_path TEXT NOT NULL,
		stored_path TEXT NOT NULL,
		url TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE(version_id, orig_path)
	);
	CREATE INDEX IF NOT EXISTS idx_versions_project ON versions(project_id);
	CREATE INDEX IF NOT EXISTS idx_pages_version ON pages(version_id);
	CREATE INDEX IF NOT EXISTS idx_images_version ON images(version_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// now returns the wall-clock second used for created/modified stamps.
func now() int64 {
	return time.Now().Unix()
}

// wrapDB classifies a database error; unique violations become conflicts so
// callers can distinguish duplicate records from infrastructure failures.
func wrapDB(err error, msg string) error {
	if err == nil {
		return nil
	}
	code := derrors.CodeInternal
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		code = derrors.CodeConflict
	}
	return derrors.Wrap(err, derrors.CategoryDatabase, code, msg)
}

// execContext is a small helper for write statements.
func (s *Store) execContext(ctx context.Context, msg, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, query, args...)
	return wrapDB(err, msg)
}
