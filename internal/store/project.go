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

const projectColumns = "id, title, slug, description, classifiers, latest_version_id, created_at, modified_at"

// CreateProject inserts a project. ID and timestamps are filled when empty.
func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	ts := now()
	p.CreatedAt = time.Unix(ts, 0)
	p.ModifiedAt = p.CreatedAt
	return s.execContext(ctx, "insert project",
		"INSERT INTO projects (id, title, slug, description, classifiers, latest_version_id, created_at, modified_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.Title, p.Slug, p.Description, encodeClassifiers(p.Classifiers), p.LatestVersionID, ts, ts,
	)
}

// GetProjectBySlug looks a project up by its machine name.
func (s *Store) GetProjectBySlug(ctx context.Context, slug string) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE slug = ?", slug)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, derrors.New(derrors.CategoryDatabase, derrors.CodeProjectNotFound, "no project for slug").
			WithContext("slug", slug)
	}
	return p, wrapDB(err, "query project by slug")
}

// GetProject looks a project up by id.
func (s *Store) GetProject(ctx context.Context, id string) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, derrors.New(derrors.CategoryDatabase, derrors.CodeProjectNotFound, "no project for id").
			WithContext("id", id)
	}
	return p, wrapDB(err, "query project")
}

// ListProjects returns all projects ordered by slug.
func (s *Store) ListProjects(ctx context.Context) ([]*models.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+projectColumns+" FROM projects ORDER BY slug")
	if err != nil {
		return nil, wrapDB(err, "list projects")
	}
	defer rows.Close()

	var out []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, wrapDB(err, "scan project")
		}
		out = append(out, p)
	}
	return out, wrapDB(rows.Err(), "iterate projects")
}

// SetLatestVersion updates the project's latest-version pointer; nil clears it.
func (s *Store) SetLatestVersion(ctx context.Context, projectID string, versionID *string) error {
	return s.execContext(ctx, "set latest version",
		"UPDATE projects SET latest_version_id = ?, modified_at = ? WHERE id = ?",
		versionID, now(), projectID,
	)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Classifiers are stored newline-joined; trove-style classifier strings
// never contain newlines.
func encodeClassifiers(classifiers []string) string {
	return strings.Join(classifiers, "\n")
}

func decodeClassifiers(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func scanProject(row rowScanner) (*models.Project, error) {
	var (
		p           models.Project
		classifiers string
		latest      sql.NullString
		created     int64
		modified    int64
	)
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Description, &classifiers, &latest, &created, &modified)
	if err != nil {
		return nil, err
	}
	p.Classifiers = decodeClassifiers(classifiers)
	if latest.Valid {
		p.LatestVersionID = &latest.String
	}
	p.CreatedAt = time.Unix(created, 0)
	p.ModifiedAt = time.Unix(modified, 0)
	return &p, nil
}
