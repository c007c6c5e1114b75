package blobstore

import (
	"context"
	"testing"
)

func TestFSStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir(), "/media/")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	url, err := s.Put(ctx, "proj/1.0.0/images/logo.png", []byte{0x89, 0x50, 0x4e, 0x47})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "/media/proj/1.0.0/images/logo.png" {
		t.Fatalf("unexpected url %q", url)
	}

	data, err := s.Get(ctx, "proj/1.0.0/images/logo.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(data) != 4 || data[1] != 0x50 {
		t.Fatalf("unexpected data %v", data)
	}

	ok, err := s.Exists(ctx, "proj/1.0.0/images/logo.png")
	if err != nil || !ok {
		t.Fatalf("exists: %v %v", ok, err)
	}
}

func TestFSStoreGetMissing(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), "/media")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := s.Get(context.Background(), "nope.png"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFSStoreDeletePrefix(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir(), "/media")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	keys := []string{
		"proj/1.0.0/images/a.png",
		"proj/1.0.0/images/b.png",
		"proj/2.0.0/images/c.png",
	}
	for _, k := range keys {
		if _, err := s.Put(ctx, k, []byte("x")); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}

	if err := s.DeletePrefix(ctx, "proj/1.0.0"); err != nil {
		t.Fatalf("delete prefix: %v", err)
	}

	for _, k := range keys[:2] {
		if ok, _ := s.Exists(ctx, k); ok {
			t.Errorf("%s should be gone", k)
		}
	}
	if ok, _ := s.Exists(ctx, keys[2]); !ok {
		t.Errorf("%s should survive", keys[2])
	}
}

func TestFSStoreKeyEscapeRejected(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFSStore(dir, "/media")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	// Traversal segments collapse inside the root instead of escaping it.
	if _, err := s.Put(ctx, "../../etc/passwd", []byte("nope")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if ok, _ := s.Exists(ctx, "etc/passwd"); !ok {
		t.Fatal("key should have been cleaned into the root")
	}
}

func TestMemStoreDeletePrefix(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore("/media")
	_, _ = s.Put(ctx, "p/1/images/a.png", []byte("a"))
	_, _ = s.Put(ctx, "p/2/images/b.png", []byte("b"))

	if err := s.DeletePrefix(ctx, "p/1/"); err != nil {
		t.Fatalf("delete prefix: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 blob left, got %d", s.Len())
	}
}
