package qr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ImageStore persists a generated QR image and returns its public URL.
// Image hosting is a collaborator; the link core only keeps the returned
// reference.
type ImageStore interface {
	Save(ctx context.Context, name string, png []byte) (string, error)
}

// FileStore stores QR images on the local filesystem, served as static
// files under <baseURL>/q/.
type FileStore struct {
	dir     string
	baseURL string
}

// NewFileStore creates the image directory if needed.
func NewFileStore(dir, baseURL string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create qr image dir: %w", err)
	}
	return &FileStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory images are written to.
func (s *FileStore) Dir() string {
	return s.dir
}

// Save writes the PNG and returns its public URL.
func (s *FileStore) Save(_ context.Context, name string, png []byte) (string, error) {
	filename := name + ".png"
	if err := os.WriteFile(filepath.Join(s.dir, filename), png, 0o644); err != nil {
		return "", fmt.Errorf("failed to write qr image: %w", err)
	}
	return s.baseURL + "/q/" + filename, nil
}
