package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStore keeps payloads on the local filesystem. It is the default
// backend for development and tests.
type LocalStore struct {
	basePath string
}

func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %s: %w", basePath, err)
	}
	return &LocalStore{basePath: basePath}, nil
}

func (l *LocalStore) path(key string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(key))
}

// Put writes the payload under the key, creating parent directories as needed
func (l *LocalStore) Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) error {
	_ = size
	_ = contentType
	target := l.path(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create dir for %s: %w", key, err)
	}
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", key, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Open streams a stored payload
func (l *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(l.path(key))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	return f, nil
}

// Delete removes a stored payload; a missing file is treated as already gone
func (l *LocalStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(l.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
