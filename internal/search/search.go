package search

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/dochost/internal/derrors"
	"git.home.luguber.info/inful/dochost/internal/metrics"
	"git.home.luguber.info/inful/dochost/internal/models"
	"git.home.luguber.info/inful/dochost/internal/observability"
	"git.home.luguber.info/inful/dochost/internal/retry"
	"git.home.luguber.info/inful/dochost/internal/store"
)

// Synchronizer pushes page documents to the search backend and removes
// documents of deleted versions. Only the current latest version of a
// project is ever indexed.
type Synchronizer struct {
	store   *store.Store
	backend Backend
	policy  retry.Policy
	metrics metrics.Recorder

	// sleep is swapped out by tests to observe rate-limit waits.
	sleep func(time.Duration)
}

// NewSynchronizer assembles a synchronizer with the given retry policy for
// rate-limited batches.
func NewSynchronizer(st *store.Store, backend Backend, policy retry.Policy, rec metrics.Recorder) *Synchronizer {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Synchronizer{
		store:   st,
		backend: backend,
		policy:  policy,
		metrics: rec,
		sleep:   time.Sleep,
	}
}

// RemoveVersion deletes the version's searchable pages from the index.
// Idempotent: removing already-absent documents is not an error.
func (s *Synchronizer) RemoveVersion(ctx context.Context, project *models.Project, version *models.Version) error {
	ctx = observability.WithVersion(observability.WithProject(ctx, project.Slug), version.Label)

	pages, err := s.store.ListSearchablePages(ctx, version.ID)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return nil
	}

	ids := make([]string, len(pages))
	for i, p := range pages {
		ids[i] = p.ID
	}
	if err := s.backend.Delete(ctx, ids); err != nil {
		return derrors.Wrap(err, derrors.CategorySearch, derrors.CodeInternal, "remove version from index")
	}

	s.metrics.PagesRemoved(project.Slug, len(ids))
	observability.InfoContext(ctx, "removed version from search index", slog.Int("documents", len(ids)))
	return nil
}

// ReindexProject recomputes the searchable document set for the project's
// current latest version and pushes it in backend-sized batches. Documents
// of every non-latest version are deleted first, so afterwards the index
// holds exactly the latest version's pages for this project. A rate-limited
// batch is retried per the policy; any other backend error propagates.
func (s *Synchronizer) ReindexProject(ctx context.Context, project *models.Project) error {
	ctx = observability.WithProject(ctx, project.Slug)

	versions, err := s.store.ListVersions(ctx, project.ID)
	if err != nil {
		return err
	}

	var latest *models.Version
	for _, v := range versions {
		if project.LatestVersionID != nil && v.ID == *project.LatestVersionID {
			latest = v
			continue
		}
		if err := s.RemoveVersion(ctx, project, v); err != nil {
			return err
		}
	}
	if latest == nil {
		observability.InfoContext(ctx, "no latest version, nothing to index")
		return nil
	}

	ctx = observability.WithVersion(ctx, latest.Label)
	pages, err := s.store.ListSearchablePages(ctx, latest.ID)
	if err != nil {
		return err
	}

	docs := make([]Document, len(pages))
	for i, p := range pages {
		docs[i] = Document{
			ID:          p.ID,
			Project:     project.Slug,
			ProjectID:   project.ID,
			VersionID:   latest.ID,
			Version:     latest.Label,
			Path:        p.RelativePath,
			Title:       p.Title,
			Text:        p.Body,
			Classifiers: project.Classifiers,
			IsLatest:    true,
			Modified:    p.ModifiedAt,
		}
	}

	batchSize := s.backend.BatchSize()
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	for start := 0; start < len(docs); start += batchSize {
		end := min(start+batchSize, len(docs))
		if err := s.updateBatch(ctx, project.Slug, docs[start:end]); err != nil {
			return err
		}
	}

	observability.InfoContext(ctx, "reindexed latest version", slog.Int("documents", len(docs)))
	return nil
}

// updateBatch pushes one batch, waiting out rate limiting per the policy.
// The same batch is retried; with an unbounded policy this blocks until the
// backend accepts it.
func (s *Synchronizer) updateBatch(ctx context.Context, projectSlug string, batch []Document) error {
	for retryCount := 0; ; retryCount++ {
		err := s.backend.Update(ctx, batch)
		if err == nil {
			s.metrics.ReindexBatch(projectSlug, len(batch))
			return nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return derrors.Wrap(err, derrors.CategorySearch, derrors.CodeInternal, "push index batch")
		}
		if s.policy.Exhausted(retryCount + 1) {
			return derrors.Wrap(err, derrors.CategorySearch, derrors.CodeExhausted,
				"rate-limit retries exhausted").
				WithContext("retries", retryCount+1)
		}
		s.metrics.RateLimitWait(projectSlug)
		observability.WarnContext(ctx, "search backend rate limited, waiting",
			slog.Int("retry", retryCount+1))
		s.sleep(s.policy.Delay(retryCount + 1))
	}
}
