package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/dochost/internal/derrors"
	"git.home.luguber.info/inful/dochost/internal/models"
)

const pageColumns = "id, version_id, relative_path, title, content, orig_body, body, orig_local_toc, local_toc, parent_id, next_id, searchable, created_at, modified_at"

// CreatePage inserts a page. ID and timestamps are filled when empty.
func (s *Store) CreatePage(ctx context.Context, p *models.Page) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	ts := now()
	p.CreatedAt = time.Unix(ts, 0)
	p.ModifiedAt = p.CreatedAt
	return s.execContext(ctx, "insert page",
		"INSERT INTO pages (id, version_id, relative_path, title, content, orig_body, body, orig_local_toc, local_toc, parent_id, next_id, searchable, created_at, modified_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.VersionID, p.RelativePath, p.Title, p.Content, p.OrigBody, p.Body,
		p.OrigLocalTOC, p.LocalTOC, p.ParentID, p.NextID, boolToInt(p.Searchable), ts, ts,
	)
}

// GetPage looks a page up by id.
func (s *Store) GetPage(ctx context.Context, id string) (*models.Page, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+pageColumns+" FROM pages WHERE id = ?", id)
	p, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, derrors.New(derrors.CategoryDatabase, derrors.CodeNotFound, "no page for id").
			WithContext("id", id)
	}
	return p, wrapDB(err, "query page")
}

// GetPageByPath looks a page up by (version, relative path).
func (s *Store) GetPageByPath(ctx context.Context, versionID, relativePath string) (*models.Page, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+pageColumns+" FROM pages WHERE version_id = ? AND relative_path = ?", versionID, relativePath)
	p, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, derrors.New(derrors.CategoryDatabase, derrors.CodeNotFound, "no page for path").
			WithContext("relative_path", relativePath)
	}
	return p, wrapDB(err, "query page by path")
}

// ListPages returns all pages of a version ordered by relative path.
func (s *Store) ListPages(ctx context.Context, versionID string) ([]*models.Page, error) {
	return s.queryPages(ctx,
		"SELECT "+pageColumns+" FROM pages WHERE version_id = ? ORDER BY relative_path", versionID)
}

// ListSearchablePages returns the pages of a version that participate in the
// search index.
func (s *Store) ListSearchablePages(ctx context.Context, versionID string) ([]*models.Page, error) {
	return s.queryPages(ctx,
		"SELECT "+pageColumns+" FROM pages WHERE version_id = ? AND searchable = 1 ORDER BY relative_path", versionID)
}

func (s *Store) queryPages(ctx context.Context, query string, args ...any) ([]*models.Page, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDB(err, "list pages")
	}
	defer rows.Close()

	var out []*models.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, wrapDB(err, "scan page")
		}
		out = append(out, p)
	}
	return out, wrapDB(rows.Err(), "iterate pages")
}

// UpdatePageLinks sets the parent and next pointers of a page. Bulk-called
// by the tree builder after all pages of a version exist.
func (s *Store) UpdatePageLinks(ctx context.Context, pageID string, parentID, nextID *string) error {
	return s.execContext(ctx, "update page links",
		"UPDATE pages SET parent_id = ?, next_id = ?, modified_at = ? WHERE id = ?",
		parentID, nextID, now(), pageID,
	)
}

// UpdatePageBody replaces the rewritten body of a page. Used by the link
// maintenance pass.
func (s *Store) UpdatePageBody(ctx context.Context, pageID, body string) error {
	return s.execContext(ctx, "update page body",
		"UPDATE pages SET body = ?, modified_at = ? WHERE id = ?",
		body, now(), pageID,
	)
}

// MarkSearchablePages flags every page of a version as searchable except
// those whose relative path is listed in excludePaths.
func (s *Store) MarkSearchablePages(ctx context.Context, versionID string, excludePaths []string) error {
	if err := s.execContext(ctx, "mark pages searchable",
		"UPDATE pages SET searchable = 1 WHERE version_id = ?", versionID); err != nil {
		return err
	}
	if len(excludePaths) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(excludePaths)), ",")
	args := make([]any, 0, len(excludePaths)+1)
	args = append(args, versionID)
	for _, p := range excludePaths {
		args = append(args, p)
	}
	return s.execContext(ctx, "unmark excluded pages",
		"UPDATE pages SET searchable = 0 WHERE version_id = ? AND relative_path IN ("+placeholders+")",
		args...,
	)
}

func scanPage(row rowScanner) (*models.Page, error) {
	var (
		p          models.Page
		parent     sql.NullString
		next       sql.NullString
		searchable int
		created    int64
		modified   int64
	)
	err := row.Scan(&p.ID, &p.VersionID, &p.RelativePath, &p.Title, &p.Content, &p.OrigBody,
		&p.Body, &p.OrigLocalTOC, &p.LocalTOC, &parent, &next, &searchable, &created, &modified)
	if err != nil {
		return nil, err
	}
	if parent.Valid {
		p.ParentID = &parent.String
	}
	if next.Valid {
		p.NextID = &next.String
	}
	p.Searchable = searchable != 0
	p.CreatedAt = time.Unix(created, 0)
	p.ModifiedAt = time.Unix(modified, 0)
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
