// Package storage holds the binary stores image files are uploaded to.
package storage

import (
	"context"
)

// BinaryStore keeps image bytes at a path and serves them from a public URL.
type BinaryStore interface {
	// Put writes data at path and returns the URL it can be downloaded from.
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)
	// Delete removes the object at path. Deleting a missing object is not an
	// error.
	Delete(ctx context.Context, path string) error
}
