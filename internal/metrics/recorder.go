// Package metrics defines the metrics Recorder abstraction and its
// Prometheus implementation.
package metrics

import "time"

// Recorder abstracts metric emission so core packages do not depend on a
// concrete metrics backend.
type Recorder interface {
	// ImportCompleted records one finished import attempt.
	ImportCompleted(project string, pages, images int, d time.Duration, success bool)
	// ResolutionCompleted records one latest-version resolution by outcome:
	// "noop", "changed", "cleared", "failed".
	ResolutionCompleted(project, outcome string)
	// ReindexBatch records one successfully pushed search batch.
	ReindexBatch(project string, docs int)
	// RateLimitWait records one wait caused by backend rate limiting.
	RateLimitWait(project string)
	// PagesRemoved records search index removals.
	PagesRemoved(project string, docs int)
}

// Nop is a Recorder that discards everything. Used in tests and when
// metrics are disabled.
type Nop struct{}

func (Nop) ImportCompleted(string, int, int, time.Duration, bool) {}
func (Nop) ResolutionCompleted(string, string)                    {}
func (Nop) ReindexBatch(string, int)                              {}
func (Nop) RateLimitWait(string)                                  {}
func (Nop) PagesRemoved(string, int)                              {}
