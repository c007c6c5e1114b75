// Package search keeps the external search index consistent with the
// store: removing deleted versions' pages and pushing the current latest
// version's pages in rate-limit-aware batches.
package search

import (
	"context"
	"errors"
	"time"
)

// ErrRateLimited is the distinguished backend condition that triggers the
// retry loop. Backends wrap or return it verbatim; every other error is
// opaque and propagates.
var ErrRateLimited = errors.New("search backend rate limited")

// Document is one searchable page as pushed to the index.
type Document struct {
	ID          string    `json:"id"`
	Project     string    `json:"project"`
	ProjectID   string    `json:"project_id"`
	VersionID   string    `json:"version_id"`
	Version     string    `json:"version"`
	Path        string    `json:"path"`
	Title       string    `json:"title"`
	Text        string    `json:"text"`
	Classifiers []string  `json:"classifiers,omitempty"`
	IsLatest    bool      `json:"is_latest"`
	Modified    time.Time `json:"modified"`
}

// Backend is the external search index. Implementations report their own
// batch size; the synchronizer never sends larger update batches.
type Backend interface {
	// BatchSize returns the maximum documents per Update call. Values <= 0
	// make the synchronizer fall back to its own default.
	BatchSize() int

	// Update inserts or replaces documents. Returns ErrRateLimited (possibly
	// wrapped) when the backend throttles the call.
	Update(ctx context.Context, docs []Document) error

	// Delete removes documents by id. Absent ids are not an error.
	Delete(ctx context.Context, ids []string) error
}
