package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBatchSize is used when a backend does not report its own.
const DefaultBatchSize = 100

// HTTPBackend talks to a search service over JSON HTTP. A 429 response maps
// to ErrRateLimited; other non-2xx statuses are opaque failures.
type HTTPBackend struct {
	endpoint  string
	apiKey    string
	batchSize int
	client    *http.Client
}

// NewHTTPBackend creates a backend for the service at endpoint. batchSize
// <= 0 falls back to DefaultBatchSize.
func NewHTTPBackend(endpoint, apiKey string, batchSize int) *HTTPBackend {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &HTTPBackend{
		endpoint:  endpoint,
		apiKey:    apiKey,
		batchSize: batchSize,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (b *HTTPBackend) BatchSize() int {
	return b.batchSize
}

// Update pushes a document batch to the index.
func (b *HTTPBackend) Update(ctx context.Context, docs []Document) error {
	return b.post(ctx, "/documents", map[string]any{"documents": docs})
}

// Delete removes documents by id. The service treats absent ids as deleted,
// so a 404 counts as success.
func (b *HTTPBackend) Delete(ctx context.Context, ids []string) error {
	err := b.post(ctx, "/documents/delete", map[string]any{"ids": ids})
	var se *statusError
	if errors.As(err, &se) && se.status == http.StatusNotFound {
		return nil
	}
	return err
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("search backend returned %d: %s", e.status, e.body)
}

func (b *HTTPBackend) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal search payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", path, ErrRateLimited)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{status: resp.StatusCode, body: string(msg)}
	}
}
