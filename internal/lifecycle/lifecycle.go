// Package lifecycle coordinates version deletion: latest-pointer
// resolution and index synchronization run to completion before the version
// row and its stored blobs are removed.
package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/dochost/internal/blobstore"
	"git.home.luguber.info/inful/dochost/internal/derrors"
	"git.home.luguber.info/inful/dochost/internal/events"
	"git.home.luguber.info/inful/dochost/internal/observability"
	"git.home.luguber.info/inful/dochost/internal/resolver"
	"git.home.luguber.info/inful/dochost/internal/search"
	"git.home.luguber.info/inful/dochost/internal/store"
)

// Service owns the deletion and reindex operations exposed to the CLI and
// the watch daemon.
type Service struct {
	store    *store.Store
	blobs    blobstore.Store
	resolver *resolver.Resolver
	sync     *search.Synchronizer
	events   *events.Publisher
}

// New assembles the lifecycle service. events may be nil.
func New(st *store.Store, blobs blobstore.Store, res *resolver.Resolver, sync *search.Synchronizer, pub *events.Publisher) *Service {
	return &Service{store: st, blobs: blobs, resolver: res, sync: sync, events: pub}
}

// DeleteVersion removes one version of a project. The resolver (and with it
// the search synchronizer) runs first; only when the new latest pointer is
// durably set and the index updated is the row removed and the version's
// stored images deleted. Blocking; with an unbounded retry policy the index
// update has no deadline.
func (s *Service) DeleteVersion(ctx context.Context, projectSlug, label string) error {
	ctx = observability.WithVersion(observability.WithProject(ctx, projectSlug), label)

	project, err := s.store.GetProjectBySlug(ctx, projectSlug)
	if err != nil {
		return err
	}
	version, err := s.store.GetVersionByLabel(ctx, project.ID, label)
	if err != nil {
		return err
	}

	outcome, err := s.resolver.ResolveOnDelete(ctx, project, version)
	if err != nil {
		return err
	}

	if err := s.store.DeleteVersion(ctx, version.ID); err != nil {
		return err
	}
	if err := s.blobs.DeletePrefix(ctx, projectSlug+"/"+label+"/"); err != nil {
		return derrors.Wrap(err, derrors.CategoryStorage, derrors.CodeInternal, "delete stored images").
			WithContext("project", projectSlug).
			WithContext("version", label)
	}

	s.events.PublishDeleted(events.VersionDeleted{
		Project: projectSlug,
		Version: label,
		At:      time.Now().UTC(),
	})
	observability.InfoContext(ctx, "version deleted", slog.String("resolution", string(outcome)))
	return nil
}

// Reindex recomputes the search index for a project's current latest
// version.
func (s *Service) Reindex(ctx context.Context, projectSlug string) error {
	project, err := s.store.GetProjectBySlug(ctx, projectSlug)
	if err != nil {
		return err
	}
	return s.sync.ReindexProject(ctx, project)
}

// ReindexAll reindexes every project. Used by the watch daemon's periodic
// reconcile.
func (s *Service) ReindexAll(ctx context.Context) error {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return err
	}
	for _, p := range projects {
		if err := s.sync.ReindexProject(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
