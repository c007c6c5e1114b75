package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/dochost/internal/derrors"
	"git.home.luguber.info/inful/dochost/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedProject(t *testing.T, s *Store, slugName string) *models.Project {
	t.Helper()
	p := &models.Project{Title: "Test Project", Slug: slugName}
	require.NoError(t, s.CreateProject(context.Background(), p))
	return p
}

func seedVersion(t *testing.T, s *Store, projectID, label string) *models.Version {
	t.Helper()
	v := &models.Version{ProjectID: projectID, Label: label}
	require.NoError(t, s.CreateVersion(context.Background(), v))
	return v
}

func TestProjectRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p := seedProject(t, s, "my-project")
	got, err := s.GetProjectBySlug(ctx, "my-project")
	require.NoError(t, err)
	require.Equal(t, p.ID, got.ID)
	require.Nil(t, got.LatestVersionID)

	_, err = s.GetProjectBySlug(ctx, "missing")
	require.True(t, derrors.IsCode(err, derrors.CodeProjectNotFound))
}

func TestProjectSlugUnique(t *testing.T) {
	s := newTestStore(t)
	seedProject(t, s, "dup")
	err := s.CreateProject(context.Background(), &models.Project{Title: "Other", Slug: "dup"})
	require.True(t, derrors.IsCode(err, derrors.CodeConflict))
}

func TestVersionLabelUniquePerProject(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p1 := seedProject(t, s, "p1")
	p2 := seedProject(t, s, "p2")

	seedVersion(t, s, p1.ID, "1.0.0")
	err := s.CreateVersion(ctx, &models.Version{ProjectID: p1.ID, Label: "1.0.0"})
	require.True(t, derrors.IsCode(err, derrors.CodeConflict))

	// Same label under another project is fine.
	require.NoError(t, s.CreateVersion(ctx, &models.Version{ProjectID: p2.ID, Label: "1.0.0"}))
}

func TestSetLatestVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProject(t, s, "p")
	v := seedVersion(t, s, p.ID, "1.0.0")

	require.NoError(t, s.SetLatestVersion(ctx, p.ID, &v.ID))
	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LatestVersionID)
	require.Equal(t, v.ID, *got.LatestVersionID)

	require.NoError(t, s.SetLatestVersion(ctx, p.ID, nil))
	got, err = s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	require.Nil(t, got.LatestVersionID)
}

func TestPageUniquePathAndNextBackref(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProject(t, s, "p")
	v := seedVersion(t, s, p.ID, "1.0.0")

	a := &models.Page{VersionID: v.ID, RelativePath: "index", Title: "Home"}
	b := &models.Page{VersionID: v.ID, RelativePath: "usage", Title: "Usage"}
	c := &models.Page{VersionID: v.ID, RelativePath: "api", Title: "API"}
	for _, pg := range []*models.Page{a, b, c} {
		require.NoError(t, s.CreatePage(ctx, pg))
	}

	dup := &models.Page{VersionID: v.ID, RelativePath: "index", Title: "Dup"}
	require.True(t, derrors.IsCode(s.CreatePage(ctx, dup), derrors.CodeConflict))

	// a -> b is fine; c -> b would make b the next of two pages.
	require.NoError(t, s.UpdatePageLinks(ctx, a.ID, nil, &b.ID))
	err := s.UpdatePageLinks(ctx, c.ID, nil, &b.ID)
	require.True(t, derrors.IsCode(err, derrors.CodeConflict))
}

func TestPurgeVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProject(t, s, "p")
	v := seedVersion(t, s, p.ID, "1.0.0")

	pg := &models.Page{VersionID: v.ID, RelativePath: "index", Title: "Home"}
	require.NoError(t, s.CreatePage(ctx, pg))
	require.NoError(t, s.CreateImage(ctx, &models.Image{VersionID: v.ID, OrigPath: "_images/a.png", StoredPath: "p/1.0.0/images/a.png", URL: "/media/p/1.0.0/images/a.png"}))

	v.HeadPageID = &pg.ID
	require.NoError(t, s.UpdateVersionMeta(ctx, v))

	require.NoError(t, s.PurgeVersion(ctx, v.ID))

	pages, err := s.ListPages(ctx, v.ID)
	require.NoError(t, err)
	require.Empty(t, pages)
	images, err := s.ListImages(ctx, v.ID)
	require.NoError(t, err)
	require.Empty(t, images)

	got, err := s.GetVersion(ctx, v.ID)
	require.NoError(t, err)
	require.Nil(t, got.HeadPageID)
}

func TestDeleteVersionCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProject(t, s, "p")
	v := seedVersion(t, s, p.ID, "1.0.0")
	require.NoError(t, s.CreatePage(ctx, &models.Page{VersionID: v.ID, RelativePath: "index", Title: "Home"}))

	require.NoError(t, s.DeleteVersion(ctx, v.ID))

	_, err := s.GetVersion(ctx, v.ID)
	require.True(t, derrors.IsCode(err, derrors.CodeNotFound))
	pages, err := s.ListPages(ctx, v.ID)
	require.NoError(t, err)
	require.Empty(t, pages)
}

func TestMarkSearchablePages(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProject(t, s, "p")
	v := seedVersion(t, s, p.ID, "1.0.0")

	for _, rel := range []string{"index", "usage", "genindex", "search"} {
		require.NoError(t, s.CreatePage(ctx, &models.Page{VersionID: v.ID, RelativePath: rel, Title: rel}))
	}

	require.NoError(t, s.MarkSearchablePages(ctx, v.ID, []string{"genindex", "search"}))

	searchable, err := s.ListSearchablePages(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, searchable, 2)
	for _, pg := range searchable {
		require.NotContains(t, []string{"genindex", "search"}, pg.RelativePath)
	}
}

func TestImageUniqueOrigPath(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedProject(t, s, "p")
	v := seedVersion(t, s, p.ID, "1.0.0")

	img := &models.Image{VersionID: v.ID, OrigPath: "_images/x.png", StoredPath: "k", URL: "/media/k"}
	require.NoError(t, s.CreateImage(ctx, img))
	dup := &models.Image{VersionID: v.ID, OrigPath: "_images/x.png", StoredPath: "k2", URL: "/media/k2"}
	require.True(t, derrors.IsCode(s.CreateImage(ctx, dup), derrors.CodeConflict))
}
