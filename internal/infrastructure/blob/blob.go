// Package blob provides path-keyed binary storage with interchangeable
// local-filesystem and S3 backends.
package blob

import "context"

// Store is the storage abstraction the ingestion pipeline and the moment
// coordinator write through. Backends are selected by configuration at
// startup and must be swappable without changing caller code.
type Store interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
	Get(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	Health(ctx context.Context) error
}
