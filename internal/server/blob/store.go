// Package blob stores file content. Metadata lives in the database; the blob
// store only knows opaque storage keys.
package blob

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store keeps file bodies under opaque keys.
type Store interface {
	// Put stores data under a fresh key and returns that key.
	Put(ctx context.Context, data []byte, contentType string) (string, error)
	// Get returns the content stored under key, or common.ErrorNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

var newStorageKey = func() string {
	d := time.Now()
	return fmt.Sprintf("files/%d/%02d/%02d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}
