package folders

import (
	"context"

	"github.com/dmitrijs2005/vaultify/internal/server/models"
)

// Repository persists folders.
type Repository interface {
	Create(ctx context.Context, folder *models.Folder) (*models.Folder, error)
	GetByID(ctx context.Context, id string) (*models.Folder, error)
}
