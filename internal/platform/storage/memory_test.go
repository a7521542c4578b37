package storage

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	content := []byte("%PDF-1.4")
	if err := store.Put(ctx, "a/b.pdf", "application/pdf", content); err != nil {
		t.Fatalf("put: %v", err)
	}
	content[0] = 'X'

	got, err := store.Get(ctx, "a/b.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "%PDF-1.4" {
		t.Fatalf("stored content was aliased: %q", got)
	}

	if err := store.Delete(ctx, "a/b.pdf"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "a/b.pdf"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
	if err := store.Delete(ctx, "a/b.pdf"); err != nil {
		t.Fatalf("deleting a missing key should succeed, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d objects", store.Len())
	}
}

func TestMinioStoreRequiresConfig(t *testing.T) {
	if _, err := NewMinio(context.Background(), MinioConfig{Bucket: "docs"}); err == nil {
		t.Fatal("expected error without endpoint")
	}
	if _, err := NewMinio(context.Background(), MinioConfig{Endpoint: "localhost:9000"}); err == nil {
		t.Fatal("expected error without bucket")
	}
}
