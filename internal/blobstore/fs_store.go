package blobstore

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// FSStore is a filesystem-backed Store. Keys map directly onto the
// directory layout below root:
//
//	media/
//	  my-project/
//	    1.2.0/
//	      images/
//	        diagram.png
//
// URLs are baseURL + "/" + key; the web layer serves root at baseURL.
type FSStore struct {
	root    string
	baseURL string
	mu      sync.RWMutex
}

// NewFSStore creates a filesystem blob store rooted at root. baseURL is the
// public prefix under which root is served.
func NewFSStore(root, baseURL string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, err
	}
	return &FSStore{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (s *FSStore) blobPath(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(path.Clean("/" + key)))
}

// Put stores data under key and returns its URL.
func (s *FSStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.blobPath(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return "", err
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return "", err
	}
	return s.URL(key), nil
}

// Get retrieves a blob by key.
func (s *FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.blobPath(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

// Exists checks whether a blob with the given key exists.
func (s *FSStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.blobPath(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// Delete removes a blob; absent keys are ignored.
func (s *FSStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.blobPath(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// DeletePrefix removes the subtree for prefix (a key directory).
func (s *FSStore) DeletePrefix(ctx context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return os.RemoveAll(s.blobPath(prefix))
}

// URL returns the public URL for key.
func (s *FSStore) URL(key string) string {
	return s.baseURL + "/" + strings.TrimPrefix(path.Clean("/"+key), "/")
}

// Close is a no-op for the filesystem store.
func (s *FSStore) Close() error { return nil }
