package permissions

import (
	"context"

	"github.com/dmitrijs2005/vaultify/internal/server/models"
)

// Repository persists per-file grants. Implementations keep at most one row
// per (file, user) pair.
type Repository interface {
	Get(ctx context.Context, fileID, userID string) (*models.Permission, error)
	GetByID(ctx context.Context, id string) (*models.Permission, error)
	// Upsert inserts p or replaces access and viewed of the existing row for
	// the same pair. p.ID is set to the id of the stored row.
	Upsert(ctx context.Context, p *models.Permission) error
	// SetViewed updates only the viewed flag of the row with the given id.
	SetViewed(ctx context.Context, id string, viewed bool) error
	// SetAccess changes the level of the row with the given id and clears
	// viewed. A missing row is ErrorNotFound.
	SetAccess(ctx context.Context, id string, access models.Access) error
	ListByFile(ctx context.Context, fileID string) ([]*models.Permission, error)
	// ListByUser returns the user's grants whose access differs from exclude.
	// An empty exclude returns every grant.
	ListByUser(ctx context.Context, userID string, exclude models.Access) ([]*models.Permission, error)
	Delete(ctx context.Context, fileID, userID string) error
	DeleteAllForFile(ctx context.Context, fileID string) error
}
