package file

import (
	"context"
	"io"
)

// Storage holds the bytes of uploaded files under opaque keys.
type Storage interface {
	Provider() string
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	// DownloadURL returns a time-limited URL for fetching the object directly from the store.
	DownloadURL(ctx context.Context, key string) (string, error)
}
