package files

import (
	"context"

	"github.com/dmitrijs2005/vaultify/internal/server/models"
)

// Repository persists file metadata.
type Repository interface {
	Create(ctx context.Context, file *models.File) (*models.File, error)
	GetByID(ctx context.Context, id string) (*models.File, error)
	ListByFolder(ctx context.Context, folderID string) ([]*models.File, error)
	Delete(ctx context.Context, id string) error
}
