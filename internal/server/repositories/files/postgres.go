package files

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

const fileColumns = `id, folder_id, owner_id, original_name, content_type, size, storage_key, created_at`

func (r *PostgresRepository) Create(ctx context.Context, file *models.File) (*models.File, error) {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}

	query := `INSERT INTO files (id, folder_id, owner_id, original_name, content_type, size, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		file.ID, file.FolderID, file.OwnerID, file.OriginalName, file.ContentType, file.Size, file.StorageKey,
	).Scan(&file.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return file, nil
}

func scanFile(row interface{ Scan(dest ...any) error }) (*models.File, error) {
	f := &models.File{}
	err := row.Scan(&f.ID, &f.FolderID, &f.OwnerID, &f.OriginalName, &f.ContentType, &f.Size, &f.StorageKey, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id=$1`

	f, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.Errorf(common.ErrorNotFound, "file %s", id)
		}
		return nil, fmt.Errorf("failed to select file: %w", err)
	}

	return f, nil
}

func (r *PostgresRepository) ListByFolder(ctx context.Context, folderID string) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE folder_id=$1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM files WHERE id=$1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.Errorf(common.ErrorNotFound, "file %s", id)
	}

	return nil
}
