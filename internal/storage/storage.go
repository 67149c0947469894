// Package storage provides blob storage for uploaded documents, backed by
// S3-compatible object stores (MinIO in local setups).
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// Store is the blob storage used for raw document bytes.
type Store interface {
	// Put writes data under key with the given content type.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get returns the object bytes, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Exists reports whether the object is present.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// Key generates a unique storage key for a filename under the documents/
// prefix, preserving the extension so downloads keep a recognizable type.
func Key(filename string) string {
	ext := filepath.Ext(filename)
	return fmt.Sprintf("documents/%s%s", uuid.New().String(), ext)
}
