package search

import (
	"context"
	"sync"
)

// MemoryBackend is an in-process Backend for tests. It can be told to
// rate-limit the next N update calls to exercise the retry loop.
type MemoryBackend struct {
	mu             sync.Mutex
	docs           map[string]Document
	batchSize      int
	rateLimitsLeft int
	updateCalls    int
}

// NewMemoryBackend creates an empty in-memory index.
func NewMemoryBackend(batchSize int) *MemoryBackend {
	return &MemoryBackend{docs: make(map[string]Document), batchSize: batchSize}
}

// RateLimitNext makes the next n Update calls fail with ErrRateLimited.
func (b *MemoryBackend) RateLimitNext(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rateLimitsLeft = n
}

func (b *MemoryBackend) BatchSize() int {
	return b.batchSize
}

func (b *MemoryBackend) Update(ctx context.Context, docs []Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.updateCalls++
	if b.rateLimitsLeft > 0 {
		b.rateLimitsLeft--
		return ErrRateLimited
	}
	for _, d := range docs {
		b.docs[d.ID] = d
	}
	return nil
}

func (b *MemoryBackend) Delete(ctx context.Context, ids []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, id := range ids {
		delete(b.docs, id)
	}
	return nil
}

// Documents returns a copy of the indexed documents keyed by id.
func (b *MemoryBackend) Documents() map[string]Document {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]Document, len(b.docs))
	for id, d := range b.docs {
		out[id] = d
	}
	return out
}

// UpdateCalls reports how many Update attempts were made, including
// rate-limited ones.
func (b *MemoryBackend) UpdateCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.updateCalls
}
