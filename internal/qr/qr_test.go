package qr

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestGeneratePNG(t *testing.T) {
	png, err := GeneratePNG("https://example.com/some/long/path")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(png, pngMagic) {
		t.Error("output does not look like a PNG")
	}
}

func TestGeneratePNG_Empty(t *testing.T) {
	if _, err := GeneratePNG(""); err == nil {
		t.Error("expected error for empty content")
	}
}

func TestFileStore_Save(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "http://localhost:8080/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	url, err := store.Save(context.Background(), "abc123", []byte("fake-png"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "http://localhost:8080/q/abc123.png" {
		t.Errorf("url = %q, want base with trailing slash trimmed", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, "abc123.png"))
	if err != nil {
		t.Fatalf("image not written: %v", err)
	}
	if string(data) != "fake-png" {
		t.Errorf("stored content = %q", data)
	}
}
