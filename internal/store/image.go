package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/dochost/internal/models"
)

const imageColumns = "id, version_id, orig_path, stored_path, url, created_at"

// CreateImage inserts an image record. Duplicate (version, orig_path) pairs
// fail with a conflict error.
func (s *Store) CreateImage(ctx context.Context, img *models.Image) error {
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	ts := now()
	img.CreatedAt = time.Unix(ts, 0)
	return s.execContext(ctx, "insert image",
		"INSERT INTO images (id, version_id, orig_path, stored_path, url, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		img.ID, img.VersionID, img.OrigPath, img.StoredPath, img.URL, ts,
	)
}

// ListImages returns all images of a version ordered by original path.
func (s *Store) ListImages(ctx context.Context, versionID string) ([]*models.Image, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+imageColumns+" FROM images WHERE version_id = ? ORDER BY orig_path", versionID)
	if err != nil {
		return nil, wrapDB(err, "list images")
	}
	defer rows.Close()

	var out []*models.Image
	for rows.Next() {
		var (
			img     models.Image
			created int64
		)
		if err := rows.Scan(&img.ID, &img.VersionID, &img.OrigPath, &img.StoredPath, &img.URL, &created); err != nil {
			return nil, wrapDB(err, "scan image")
		}
		img.CreatedAt = time.Unix(created, 0)
		out = append(out, &img)
	}
	return out, wrapDB(rows.Err(), "iterate images")
}
