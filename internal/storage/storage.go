// Package storage defines the object storage boundary. Keys are opaque;
// URLs are public-readable. The single production implementation lives in
// internal/platform/s3.
package storage

import "context"

// ObjectStore defines the interface for binary object persistence.
// Version: 1.0
type ObjectStore interface {
	// Put uploads the bytes under the given key with the given MIME type and
	// returns the public URL of the stored object.
	Put(ctx context.Context, key string, data []byte, mimeType string) (string, error)

	// Get downloads the object stored under the given key.
	Get(ctx context.Context, key string) ([]byte, error)

	// URL returns the public URL for a key without touching the backend.
	URL(key string) string

	// KeyFromURL recovers the storage key from a public URL previously
	// produced by this store.
	KeyFromURL(url string) (string, error)
}
