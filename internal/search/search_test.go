package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/dochost/internal/derrors"
	"git.home.luguber.info/inful/dochost/internal/metrics"
	"git.home.luguber.info/inful/dochost/internal/models"
	"git.home.luguber.info/inful/dochost/internal/retry"
	"git.home.luguber.info/inful/dochost/internal/store"
)

// seedProject creates a project with two versions (three searchable pages on
// the latest, one on the old) and the latest pointer set to v2.
func seedProject(t *testing.T) (*store.Store, *models.Project, *models.Version, *models.Version) {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	project := &models.Project{Title: "Demo", Slug: "demo", Classifiers: []string{"Topic :: Documentation"}}
	require.NoError(t, st.CreateProject(ctx, project))

	v1 := &models.Version{ProjectID: project.ID, Label: "1.0.0"}
	require.NoError(t, st.CreateVersion(ctx, v1))
	v2 := &models.Version{ProjectID: project.ID, Label: "2.0.0"}
	require.NoError(t, st.CreateVersion(ctx, v2))

	pages := []*models.Page{
		{VersionID: v1.ID, RelativePath: "index", Title: "Old", Searchable: true},
		{VersionID: v2.ID, RelativePath: "index", Title: "Home", Body: "<p>home</p>", Searchable: true},
		{VersionID: v2.ID, RelativePath: "usage", Title: "Usage", Searchable: true},
		{VersionID: v2.ID, RelativePath: "api", Title: "API", Searchable: true},
		{VersionID: v2.ID, RelativePath: "genindex", Title: "General Index", Searchable: false},
	}
	for _, p := range pages {
		require.NoError(t, st.CreatePage(ctx, p))
	}

	require.NoError(t, st.SetLatestVersion(ctx, project.ID, &v2.ID))
	project, err = st.GetProject(ctx, project.ID)
	require.NoError(t, err)
	return st, project, v1, v2
}

func TestReindexLeavesOnlyLatestVersion(t *testing.T) {
	st, project, v1, v2 := seedProject(t)
	ctx := context.Background()
	backend := NewMemoryBackend(100)
	sync := NewSynchronizer(st, backend, retry.DefaultPolicy(), metrics.Nop{})

	// Simulate stale state: the old version's page is still indexed.
	oldPages, err := st.ListSearchablePages(ctx, v1.ID)
	require.NoError(t, err)
	require.NoError(t, backend.Update(ctx, []Document{{ID: oldPages[0].ID, VersionID: v1.ID}}))

	require.NoError(t, sync.ReindexProject(ctx, project))

	docs := backend.Documents()
	require.Len(t, docs, 3)
	for _, d := range docs {
		require.Equal(t, v2.ID, d.VersionID)
		require.Equal(t, "2.0.0", d.Version)
		require.Equal(t, "demo", d.Project)
		require.True(t, d.IsLatest)
		require.Equal(t, []string{"Topic :: Documentation"}, d.Classifiers)
	}
}

func TestReindexRateLimitResilience(t *testing.T) {
	st, project, _, _ := seedProject(t)
	backend := NewMemoryBackend(100)
	backend.RateLimitNext(3)

	sync := NewSynchronizer(st, backend, retry.DefaultPolicy(), metrics.Nop{})
	var waits []time.Duration
	sync.sleep = func(d time.Duration) { waits = append(waits, d) }

	require.NoError(t, sync.ReindexProject(context.Background(), project))
	require.Len(t, waits, 3, "one wait per rate-limited attempt")
	require.Equal(t, 4, backend.UpdateCalls())
	require.Len(t, backend.Documents(), 3)
}

func TestReindexRetriesSameBatchPerBatch(t *testing.T) {
	st, project, _, _ := seedProject(t)
	backend := NewMemoryBackend(1) // three searchable pages -> three batches
	backend.RateLimitNext(1)

	sync := NewSynchronizer(st, backend, retry.DefaultPolicy(), metrics.Nop{})
	sync.sleep = func(time.Duration) {}

	require.NoError(t, sync.ReindexProject(context.Background(), project))
	require.Equal(t, 4, backend.UpdateCalls(), "3 batches plus 1 rate-limited retry")
	require.Len(t, backend.Documents(), 3)
}

func TestReindexRetriesExhausted(t *testing.T) {
	st, project, _, _ := seedProject(t)
	backend := NewMemoryBackend(100)
	backend.RateLimitNext(10)

	policy := retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, 2)
	sync := NewSynchronizer(st, backend, policy, metrics.Nop{})
	var waits int
	sync.sleep = func(time.Duration) { waits++ }

	err := sync.ReindexProject(context.Background(), project)
	require.True(t, derrors.IsCode(err, derrors.CodeExhausted), "got %v", err)
	require.Equal(t, 2, waits)
}

type brokenBackend struct{ *MemoryBackend }

func (b brokenBackend) Update(context.Context, []Document) error {
	return errors.New("index unavailable")
}

func TestReindexPropagatesOtherBackendErrors(t *testing.T) {
	st, project, _, _ := seedProject(t)
	sync := NewSynchronizer(st, brokenBackend{NewMemoryBackend(100)}, retry.DefaultPolicy(), metrics.Nop{})
	sync.sleep = func(time.Duration) { t.Fatal("non-rate-limit errors must not be retried") }

	err := sync.ReindexProject(context.Background(), project)
	require.Error(t, err)
	require.False(t, derrors.IsCode(err, derrors.CodeExhausted))
}

func TestRemoveVersionIsIdempotent(t *testing.T) {
	st, project, _, v2 := seedProject(t)
	ctx := context.Background()
	backend := NewMemoryBackend(100)
	sync := NewSynchronizer(st, backend, retry.DefaultPolicy(), metrics.Nop{})

	require.NoError(t, sync.ReindexProject(ctx, project))
	require.Len(t, backend.Documents(), 3)

	require.NoError(t, sync.RemoveVersion(ctx, project, v2))
	require.Empty(t, backend.Documents())

	// Removing again finds nothing and still succeeds.
	require.NoError(t, sync.RemoveVersion(ctx, project, v2))
}
