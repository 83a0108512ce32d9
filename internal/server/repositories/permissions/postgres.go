package permissions

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

type scanner interface {
	Scan(dest ...any) error
}

func scanPermission(row scanner) (*models.Permission, error) {
	p := &models.Permission{}
	var access string
	if err := row.Scan(&p.ID, &p.FileID, &p.UserID, &access, &p.Viewed); err != nil {
		return nil, err
	}
	p.Access = models.Access(access)
	return p, nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...any) (*models.Permission, error) {
	p, err := scanPermission(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select permission: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) queryMany(ctx context.Context, query string, args ...any) ([]*models.Permission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select permissions: %w", err)
	}
	defer rows.Close()

	var result []*models.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, fileID, userID string) (*models.Permission, error) {
	query := `SELECT id, file_id, user_id, access, viewed FROM permissions WHERE file_id=$1 AND user_id=$2`
	return r.queryOne(ctx, query, fileID, userID)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Permission, error) {
	query := `SELECT id, file_id, user_id, access, viewed FROM permissions WHERE id=$1`
	return r.queryOne(ctx, query, id)
}

func (r *PostgresRepository) Upsert(ctx context.Context, p *models.Permission) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	query := `INSERT INTO permissions (id, file_id, user_id, access, viewed)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (file_id, user_id)
		DO UPDATE SET access = EXCLUDED.access, viewed = EXCLUDED.viewed
		RETURNING id`

	if err := r.db.QueryRowContext(ctx, query, p.ID, p.FileID, p.UserID, string(p.Access), p.Viewed).Scan(&p.ID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) SetViewed(ctx context.Context, id string, viewed bool) error {
	query := `UPDATE permissions SET viewed=$2 WHERE id=$1`

	res, err := r.db.ExecContext(ctx, query, id, viewed)
	if err != nil {
		return fmt.Errorf("failed to update permission: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) SetAccess(ctx context.Context, id string, access models.Access) error {
	query := `UPDATE permissions SET access=$2, viewed=false WHERE id=$1`

	res, err := r.db.ExecContext(ctx, query, id, string(access))
	if err != nil {
		return fmt.Errorf("failed to update permission: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) ListByFile(ctx context.Context, fileID string) ([]*models.Permission, error) {
	query := `SELECT id, file_id, user_id, access, viewed FROM permissions WHERE file_id=$1 ORDER BY user_id`
	return r.queryMany(ctx, query, fileID)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, exclude models.Access) ([]*models.Permission, error) {
	query := `SELECT id, file_id, user_id, access, viewed FROM permissions WHERE user_id=$1 AND access<>$2 ORDER BY file_id`
	return r.queryMany(ctx, query, userID, string(exclude))
}

func (r *PostgresRepository) Delete(ctx context.Context, fileID, userID string) error {
	query := `DELETE FROM permissions WHERE file_id=$1 AND user_id=$2`

	res, err := r.db.ExecContext(ctx, query, fileID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) DeleteAllForFile(ctx context.Context, fileID string) error {
	query := `DELETE FROM permissions WHERE file_id=$1`

	if _, err := r.db.ExecContext(ctx, query, fileID); err != nil {
		return fmt.Errorf("failed to delete permissions: %w", err)
	}

	return nil
}
