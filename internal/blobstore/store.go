// Package blobstore provides keyed blob storage for imported documentation
// images. Blobs are stored under deterministic keys
// ({project}/{version}/images/{basename}) so the URL a page body references
// stays stable across re-imports.
package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested blob does not exist.
var ErrNotFound = errors.New("blob not found")

// Store persists image blobs and exposes a retrievable URL per blob.
type Store interface {
	// Put stores data under key, overwriting any previous blob, and
	// returns the URL at which the blob can be retrieved.
	Put(ctx context.Context, key string, data []byte) (url string, err error)

	// Get retrieves a blob by key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Exists checks whether a blob with the given key exists.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes a blob. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every blob whose key begins with prefix. Used
	// when a version is purged or deleted.
	DeletePrefix(ctx context.Context, prefix string) error

	// URL returns the retrievable URL for a key without touching the blob.
	URL(key string) string

	// Close releases any resources held by the store.
	Close() error
}
