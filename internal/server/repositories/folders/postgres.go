package folders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/vaultify/internal/common"
	"github.com/dmitrijs2005/vaultify/internal/dbx"
	"github.com/dmitrijs2005/vaultify/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, folder *models.Folder) (*models.Folder, error) {
	if folder.ID == "" {
		folder.ID = uuid.NewString()
	}

	query := `INSERT INTO folders (id, user_id, name) VALUES ($1, $2, $3) RETURNING created_at`

	if err := r.db.QueryRowContext(ctx, query, folder.ID, folder.UserID, folder.Name).Scan(&folder.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return folder, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	query := `SELECT id, user_id, name, created_at FROM folders WHERE id=$1`

	f := &models.Folder{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&f.ID, &f.UserID, &f.Name, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.Errorf(common.ErrorNotFound, "folder %s", id)
		}
		return nil, fmt.Errorf("failed to select folder: %w", err)
	}

	return f, nil
}
