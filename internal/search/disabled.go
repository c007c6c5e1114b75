package search

import "context"

// Disabled is a Backend that accepts and drops everything. Used when no
// search endpoint is configured, so the rest of the pipeline runs unchanged.
type Disabled struct{}

func (Disabled) BatchSize() int                      { return DefaultBatchSize }
func (Disabled) Update(context.Context, []Document) error { return nil }
func (Disabled) Delete(context.Context, []string) error   { return nil }
