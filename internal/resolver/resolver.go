// Package resolver recomputes a project's latest-version pointer when a
// version is deleted, and drives the search synchronizer from the outcome.
// It runs synchronously inside the deletion operation: the pointer update
// happens before the version row is removed.
package resolver

import (
	"context"
	"log/slog"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/dochost/internal/derrors"
	"git.home.luguber.info/inful/dochost/internal/events"
	"git.home.luguber.info/inful/dochost/internal/metrics"
	"git.home.luguber.info/inful/dochost/internal/models"
	"git.home.luguber.info/inful/dochost/internal/observability"
	"git.home.luguber.info/inful/dochost/internal/search"
	"git.home.luguber.info/inful/dochost/internal/store"
)

// FallbackPolicy decides what happens when a label cannot be parsed even
// after coercion during fallback ranking.
type FallbackPolicy string

const (
	// FallbackStrict aborts resolution on the first unusable label. This is
	// the default.
	FallbackStrict FallbackPolicy = "strict"
	// FallbackSkip drops unusable labels from the fallback ranking, the way
	// the primary ranking does.
	FallbackSkip FallbackPolicy = "skip"
)

// Outcome is the terminal state of one resolution run.
type Outcome string

const (
	// OutcomeNoop: the deleted version was not the latest; the pointer is
	// untouched.
	OutcomeNoop Outcome = "noop"
	// OutcomeChanged: a new latest version was chosen and persisted.
	OutcomeChanged Outcome = "changed"
	// OutcomeCleared: no eligible version remained; the pointer was cleared.
	OutcomeCleared Outcome = "cleared"
)

// Options configure ranking behavior.
type Options struct {
	// ExcludeGlobs lists label patterns (doublestar syntax) that are never
	// eligible as latest during primary ranking.
	ExcludeGlobs []string
	// FallbackPolicy governs unusable labels in the fallback branch.
	FallbackPolicy FallbackPolicy
}

// Resolver owns latest-pointer recomputation for version deletions.
type Resolver struct {
	store   *store.Store
	sync    *search.Synchronizer
	metrics metrics.Recorder
	events  *events.Publisher
	opts    Options
}

// New assembles a resolver. events may be nil.
func New(st *store.Store, sync *search.Synchronizer, rec metrics.Recorder, pub *events.Publisher, opts Options) *Resolver {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if opts.FallbackPolicy == "" {
		opts.FallbackPolicy = FallbackStrict
	}
	return &Resolver{store: st, sync: sync, metrics: rec, events: pub, opts: opts}
}

// ResolveOnDelete recomputes the project's latest pointer as if deleted were
// already gone, persists the result, and synchronizes the search index:
// the deleted version's documents are always removed, and the new latest is
// reindexed when the pointer moved. The caller removes the version row only
// after this returns without error.
func (r *Resolver) ResolveOnDelete(ctx context.Context, project *models.Project, deleted *models.Version) (Outcome, error) {
	ctx = observability.WithVersion(observability.WithProject(ctx, project.Slug), deleted.Label)

	outcome := OutcomeNoop
	var candidate *models.Version

	wasLatest := project.LatestVersionID != nil && *project.LatestVersionID == deleted.ID
	if wasLatest {
		var err error
		candidate, err = r.rank(ctx, project, deleted)
		if err != nil {
			return "", err
		}
		outcome = OutcomeCleared
		if candidate != nil {
			outcome = OutcomeChanged
		}
		if err := r.persist(ctx, project, deleted, candidate); err != nil {
			return "", err
		}
	}

	// The deleted version leaves the index regardless of the outcome.
	if err := r.sync.RemoveVersion(ctx, project, deleted); err != nil {
		return "", err
	}
	if outcome != OutcomeNoop {
		if err := r.sync.ReindexProject(ctx, project); err != nil {
			return "", err
		}
	}

	r.metrics.ResolutionCompleted(project.Slug, string(outcome))
	observability.InfoContext(ctx, "latest-version resolution complete",
		slog.String("outcome", string(outcome)))
	return outcome, nil
}

// rank picks the greatest remaining version by semver, deleted excluded.
// Primary ranking skips glob-excluded and unparseable labels; when it yields
// nothing and more than one version remains, the fallback re-ranks all
// remaining labels after dev-suffix coercion.
func (r *Resolver) rank(ctx context.Context, project *models.Project, deleted *models.Version) (*models.Version, error) {
	versions, err := r.store.ListVersions(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	remaining := make([]*models.Version, 0, len(versions))
	for _, v := range versions {
		if v.ID != deleted.ID {
			remaining = append(remaining, v)
		}
	}

	var best *models.Version
	var bestParsed *semver.Version
	for _, v := range remaining {
		excluded, err := r.labelExcluded(v.Label)
		if err != nil {
			return nil, err
		}
		if excluded {
			continue
		}
		parsed, err := parseLabel(v.Label)
		if err != nil {
			observability.WarnContext(ctx, "version label is not semver, excluded from ranking",
				slog.String("label", v.Label),
				slog.String("id", v.ID),
			)
			continue
		}
		if bestParsed == nil || parsed.GreaterThan(bestParsed) {
			best = v
			bestParsed = parsed
		}
	}
	if best != nil || len(remaining) <= 1 {
		return best, nil
	}
	return r.rankFallback(ctx, remaining)
}

// rankFallback re-ranks every remaining version, coercing common non-semver
// suffixes first. Unusable labels fail the whole resolution under the
// strict policy, or are skipped under the skip policy.
func (r *Resolver) rankFallback(ctx context.Context, remaining []*models.Version) (*models.Version, error) {
	var best *models.Version
	var bestParsed *semver.Version
	for _, v := range remaining {
		parsed, err := parseLabel(coerceLabel(v.Label))
		if err != nil {
			if r.opts.FallbackPolicy == FallbackSkip {
				observability.WarnContext(ctx, "unusable version label skipped in fallback ranking",
					slog.String("label", v.Label),
					slog.String("id", v.ID),
				)
				continue
			}
			return nil, derrors.Wrap(err, derrors.CategoryDatabase, derrors.CodeUnusable,
				"version label unusable for latest resolution").
				WithContext("label", v.Label)
		}
		if bestParsed == nil || parsed.GreaterThan(bestParsed) {
			best = v
			bestParsed = parsed
		}
	}
	return best, nil
}

func (r *Resolver) labelExcluded(label string) (bool, error) {
	for _, pattern := range r.opts.ExcludeGlobs {
		ok, err := doublestar.Match(pattern, label)
		if err != nil {
			return false, derrors.Wrap(err, derrors.CategoryConfig, derrors.CodeInternal,
				"invalid latest-exclusion pattern").
				WithContext("pattern", pattern)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// persist durably sets (or clears) the project's latest pointer and mutates
// the in-memory project to match, so the subsequent reindex sees the new
// state.
func (r *Resolver) persist(ctx context.Context, project *models.Project, deleted *models.Version, candidate *models.Version) error {
	var newID *string
	newLabel := ""
	if candidate != nil {
		id := candidate.ID
		newID = &id
		newLabel = candidate.Label
	}
	if err := r.store.SetLatestVersion(ctx, project.ID, newID); err != nil {
		return err
	}
	project.LatestVersionID = newID

	r.events.PublishLatestChanged(events.LatestChanged{
		Project:   project.Slug,
		OldLatest: deleted.Label,
		NewLatest: newLabel,
		At:        time.Now().UTC(),
	})
	observability.InfoContext(ctx, "latest version pointer updated",
		slog.String("new_latest", newLabel))
	return nil
}
