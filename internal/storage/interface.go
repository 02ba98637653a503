package storage

import (
	"context"
	"io"
)

// ObjectStorage stores menu photos and narration audio.
type ObjectStorage interface {
	// Upload writes an object, replacing any existing one under key
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download opens an object for reading; the caller closes it
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// GetURL returns the URL for accessing an object
	GetURL(key string) string

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)
}
