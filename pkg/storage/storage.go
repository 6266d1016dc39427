// Package storage defines the object storage abstraction used for asset
// originals. The local filesystem adapter is the primary writer; the S3
// adapter serves as an optional off-host mirror for uploaded originals.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for object storage operations.
// Keys are slash-separated paths relative to the asset root, i.e. the shard
// path of the owning SKU followed by the stored filename.
type Storage interface {
	// PutObject uploads a file to storage.
	PutObject(ctx context.Context, key string, data io.Reader, contentType string, size int64) error

	// GetObject retrieves a file from storage.
	// Returns a ReadCloser that must be closed by the caller.
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)

	// DeleteObject removes a file from storage.
	DeleteObject(ctx context.Context, key string) error

	// ObjectExists checks if an object exists in storage.
	ObjectExists(ctx context.Context, key string) (bool, error)

	// GenerateURL creates an access URL for the object.
	// For local storage: the direct delivery path under /assets.
	// For S3 with presigned mode: a presigned URL.
	GenerateURL(ctx context.Context, key string) (string, error)

	// Type returns the storage type identifier ("local" or "s3").
	Type() string
}
