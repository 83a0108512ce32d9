// Package tokens issues and tracks single-use delegated access tokens that
// back presigned URLs.
package tokens

import (
	"time"

	"github.com/dmitrijs2005/vaultify/internal/server/models"
)

// Store keeps delegated tokens keyed by the digest of their bearer secret.
// All methods must be safe for concurrent use.
type Store interface {
	// Put stores t under key for ttl.
	Put(key string, t *models.DelegatedToken, ttl time.Duration) error
	// Get returns the token under key or common.ErrorNotFound when it is
	// absent or already expired.
	Get(key string) (*models.DelegatedToken, error)
	// Delete removes key. Removing a missing key is not an error.
	Delete(key string) error
}
