package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	key, err := store.Write(context.Background(), "covers/f1/photo.jpg", []byte("image-bytes"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if key != "covers/f1/photo.jpg" {
		t.Fatalf("unexpected key %q", key)
	}

	data, err := os.ReadFile(filepath.Join(dir, "covers", "f1", "photo.jpg"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Fatalf("unexpected contents %q", data)
	}
}

func TestFileStoreSanitizeKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		want    string
		wantErr bool
	}{
		{name: "simple", key: "a/b.png", want: "a/b.png"},
		{name: "leading slash", key: "/a/b.png", want: "a/b.png"},
		{name: "dot prefix", key: "./a.png", want: "a.png"},
		{name: "inner dots collapse", key: "a/./b.png", want: "a/b.png"},
		{name: "traversal", key: "../outside.png", wantErr: true},
		{name: "nested traversal", key: "a/../../outside.png", wantErr: true},
		{name: "empty", key: "", wantErr: true},
		{name: "spaces only", key: "   ", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := sanitizeKey(tc.key)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got key %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("sanitizeKey(%q): %v", tc.key, err)
			}
			if got != tc.want {
				t.Fatalf("sanitizeKey(%q) = %q, want %q", tc.key, got, tc.want)
			}
		})
	}
}

func TestFileStoreRemove(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	ctx := context.Background()
	if _, err := store.Write(ctx, "covers/f1/old.jpg", []byte("old")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := store.Remove(ctx, "covers/f1/old.jpg"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "covers", "f1", "old.jpg")); !os.IsNotExist(err) {
		t.Fatalf("expected file deleted, stat err = %v", err)
	}

	// Removing again must stay silent.
	if err := store.Remove(ctx, "covers/f1/old.jpg"); err != nil {
		t.Fatalf("Remove missing: %v", err)
	}

	if err := store.Remove(ctx, "../escape.jpg"); err == nil {
		t.Fatal("expected traversal key to be rejected")
	}
}
