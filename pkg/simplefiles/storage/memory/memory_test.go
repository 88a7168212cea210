package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/tendant/simple-files/pkg/simplefiles"
)

func TestMemoryBackend_BasicOps(t *testing.T) {
	b := New()
	ctx := context.Background()
	key := "test/object"
	data := []byte("hello world")

	// Upload
	if err := b.Upload(ctx, key, bytes.NewReader(data)); err != nil {
		t.Fatalf("upload: %v", err)
	}

	// Exists
	if ok, err := b.Exists(ctx, key); err != nil || !ok {
		t.Fatalf("expected key to exist, ok=%v err=%v", ok, err)
	}

	// Download
	rc, err := b.Download(ctx, key)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if !bytes.Equal(got, data) {
		t.Fatalf("download mismatch: %q", got)
	}

	// Overwrite
	if err := b.Upload(ctx, key, bytes.NewReader([]byte("new"))); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if keys := b.Keys(); len(keys) != 1 {
		t.Fatalf("expected 1 key, got %v", keys)
	}

	// Delete
	if err := b.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := b.Download(ctx, key); !errors.Is(err, simplefiles.ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound, got %v", err)
	}
	if err := b.Delete(ctx, key); !errors.Is(err, simplefiles.ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound on second delete, got %v", err)
	}
}
