package blobstore

import (
	"context"
	"strings"
	"sync"
)

// MemStore is an in-memory Store for tests.
type MemStore struct {
	baseURL string
	mu      sync.RWMutex
	blobs   map[string][]byte
}

// NewMemStore creates an in-memory blob store.
func NewMemStore(baseURL string) *MemStore {
	return &MemStore{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		blobs:   make(map[string][]byte),
	}
}

// Put stores data under key and returns its URL.
func (s *MemStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[key] = cp
	return s.URL(key), nil
}

// Get retrieves a blob by key.
func (s *MemStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

// Exists checks whether a blob with the given key exists.
func (s *MemStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.blobs[key]
	return ok, nil
}

// Delete removes a blob; absent keys are ignored.
func (s *MemStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, key)
	return nil
}

// DeletePrefix removes every blob whose key begins with prefix.
func (s *MemStore) DeletePrefix(ctx context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.blobs {
		if strings.HasPrefix(k, prefix) {
			delete(s.blobs, k)
		}
	}
	return nil
}

// URL returns the public URL for key.
func (s *MemStore) URL(key string) string {
	return s.baseURL + "/" + key
}

// Close is a no-op.
func (s *MemStore) Close() error { return nil }

// Len reports the number of stored blobs. Test helper.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
