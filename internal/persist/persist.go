// Package persist is the persistence port for scenario snapshots: an opaque
// key to JSON-blob store. The engine only ever writes full serialized
// snapshots; there is no partial or incremental persistence.
package persist

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no blob exists for a key.
var ErrNotFound = errors.New("scenario blob not found")

// Store is the interface all persistence backends must satisfy.
type Store interface {
	// Load returns the blob stored at key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save stores blob at key, replacing any previous contents.
	Save(ctx context.Context, key string, blob []byte) error
	// Delete removes the blob at key. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error
	// Keys returns all stored keys sorted ascending.
	Keys(ctx context.Context) ([]string, error)
	// Close releases backend resources.
	Close() error
}
