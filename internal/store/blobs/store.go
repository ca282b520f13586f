// internal/store/blobs/store.go

// Package blobs provides path-addressed binary object storage for
// uploaded application documents.
package blobs

import "context"

// Store is the remote blob store collaborator. Implementations must
// treat deletion of a nonexistent object as a non-fatal condition.
type Store interface {
	// Upload writes data under path and returns its download URL.
	Upload(ctx context.Context, path, contentType string, data []byte) (string, error)

	// Delete removes the object at path. Missing objects are not an error.
	Delete(ctx context.Context, path string) error
}
