// Package storage defines the blob store contract used to archive raw
// crawled pages.
package storage

import (
	"context"
	"io"
)

// BlobStore persists raw page artifacts and returns a stable URI for each
// object.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}
