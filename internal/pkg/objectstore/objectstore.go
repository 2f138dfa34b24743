package objectstore

import (
	"context"
	"io"
)

// Store holds the physical payloads of ephemeral assets. Metadata and
// lifecycle live in the asset store; this interface only moves bytes.
type Store interface {
	Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
