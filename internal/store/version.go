package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/dochost/internal/derrors"
	"git.home.luguber.info/inful/dochost/internal/models"
)

const versionColumns = "id, project_id, label, sphinx_version, head_page_id, global_toc, created_at, modified_at"

// CreateVersion inserts a version. ID and timestamps are filled when empty.
func (s *Store) CreateVersion(ctx context.Context, v *models.Version) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	ts := now()
	v.CreatedAt = time.Unix(ts, 0)
	v.ModifiedAt = v.CreatedAt
	return s.execContext(ctx, "insert version",
		"INSERT INTO versions (id, project_id, label, sphinx_version, head_page_id, global_toc, created_at, modified_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		v.ID, v.ProjectID, v.Label, v.SphinxVersion, v.HeadPageID, v.GlobalTOC, ts, ts,
	)
}

// GetVersion looks a version up by id.
func (s *Store) GetVersion(ctx context.Context, id string) (*models.Version, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+versionColumns+" FROM versions WHERE id = ?", id)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, derrors.New(derrors.CategoryDatabase, derrors.CodeNotFound, "no version for id").
			WithContext("id", id)
	}
	return v, wrapDB(err, "query version")
}

// GetVersionByLabel looks a version up by (project, label).
func (s *Store) GetVersionByLabel(ctx context.Context, projectID, label string) (*models.Version, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+versionColumns+" FROM versions WHERE project_id = ? AND label = ?", projectID, label)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, derrors.New(derrors.CategoryDatabase, derrors.CodeNotFound, "no version for label").
			WithContext("label", label)
	}
	return v, wrapDB(err, "query version by label")
}

// ListVersions returns all versions of a project ordered by creation.
func (s *Store) ListVersions(ctx context.Context, projectID string) ([]*models.Version, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+versionColumns+" FROM versions WHERE project_id = ? ORDER BY created_at, label", projectID)
	if err != nil {
		return nil, wrapDB(err, "list versions")
	}
	defer rows.Close()

	var out []*models.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, wrapDB(err, "scan version")
		}
		out = append(out, v)
	}
	return out, wrapDB(rows.Err(), "iterate versions")
}

// UpdateVersionMeta persists sphinx version, global TOC and head pointer.
func (s *Store) UpdateVersionMeta(ctx context.Context, v *models.Version) error {
	ts := now()
	v.ModifiedAt = time.Unix(ts, 0)
	return s.execContext(ctx, "update version",
		"UPDATE versions SET sphinx_version = ?, head_page_id = ?, global_toc = ?, modified_at = ? WHERE id = ?",
		v.SphinxVersion, v.HeadPageID, v.GlobalTOC, ts, v.ID,
	)
}

// PurgeVersion removes all pages and images of a version and clears its head
// pointer. Used by forced re-imports before repopulating; the purge and the
// subsequent repopulation are not one atomic unit.
func (s *Store) PurgeVersion(ctx context.Context, versionID string) error {
	if err := s.execContext(ctx, "clear version head",
		"UPDATE versions SET head_page_id = NULL, modified_at = ? WHERE id = ?", now(), versionID); err != nil {
		return err
	}
	if err := s.execContext(ctx, "purge pages",
		"DELETE FROM pages WHERE version_id = ?", versionID); err != nil {
		return err
	}
	return s.execContext(ctx, "purge images",
		"DELETE FROM images WHERE version_id = ?", versionID)
}

// DeleteVersion removes the version row; pages and images cascade. Latest
// pointer recomputation must have happened before this is called — see the
// lifecycle service.
func (s *Store) DeleteVersion(ctx context.Context, versionID string) error {
	return s.execContext(ctx, "delete version",
		"DELETE FROM versions WHERE id = ?", versionID)
}

func scanVersion(row rowScanner) (*models.Version, error) {
	var (
		v        models.Version
		head     sql.NullString
		created  int64
		modified int64
	)
	err := row.Scan(&v.ID, &v.ProjectID, &v.Label, &v.SphinxVersion, &head, &v.GlobalTOC, &created, &modified)
	if err != nil {
		return nil, err
	}
	if head.Valid {
		v.HeadPageID = &head.String
	}
	v.CreatedAt = time.Unix(created, 0)
	v.ModifiedAt = time.Unix(modified, 0)
	return &v, nil
}
