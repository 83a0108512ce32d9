package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/vaultify/internal/common"
	"github.com/dmitrijs2005/vaultify/internal/dbx"
	"github.com/dmitrijs2005/vaultify/internal/logging"
	"github.com/dmitrijs2005/vaultify/internal/server/models"
	"github.com/dmitrijs2005/vaultify/internal/server/repositories/repomanager"
)

// PermissionService answers access questions and runs the share, update,
// revoke and acknowledge flows. Owner implies write, write implies read.
type PermissionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewPermissionService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *PermissionService {
	return &PermissionService{
		db:          db,
		repomanager: m,
		logger:      logger.With("service", "permissions"),
	}
}

// access returns the level userID holds on fileID, or "" when none.
func (s *PermissionService) access(ctx context.Context, fileID, userID string) (models.Access, error) {
	p, err := s.repomanager.Permissions(s.db).Get(ctx, fileID, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", nil
		}
		return "", err
	}
	return p.Access, nil
}

func (s *PermissionService) has(ctx context.Context, fileID, userID string, required models.Access) (bool, error) {
	a, err := s.access(ctx, fileID, userID)
	if err != nil {
		return false, err
	}
	return a.Allows(required), nil
}

func (s *PermissionService) IsOwner(ctx context.Context, fileID, userID string) (bool, error) {
	return s.has(ctx, fileID, userID, models.AccessOwner)
}

func (s *PermissionService) HasRead(ctx context.Context, fileID, userID string) (bool, error) {
	return s.has(ctx, fileID, userID, models.AccessRead)
}

func (s *PermissionService) HasWrite(ctx context.Context, fileID, userID string) (bool, error) {
	return s.has(ctx, fileID, userID, models.AccessWrite)
}

// GrantOwner records userID as owner of fileID. db is usually the
// transaction that creates the file row.
func (s *PermissionService) GrantOwner(ctx context.Context, db dbx.DBTX, fileID, userID string) error {
	return s.repomanager.Permissions(db).Upsert(ctx, &models.Permission{
		FileID: fileID,
		UserID: userID,
		Access: models.AccessOwner,
		Viewed: true,
	})
}

// requireOwner fails with ErrorForbidden unless userID owns fileID.
func (s *PermissionService) requireOwner(ctx context.Context, fileID, userID string) error {
	ok, err := s.IsOwner(ctx, fileID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return common.Errorf(common.ErrorForbidden, "only the owner can manage permissions of file %s", fileID)
	}
	return nil
}

func validateGrant(access models.Access) error {
	if access == models.AccessOwner {
		return common.Errorf(common.ErrorInvalidArgument, "owner access cannot be granted")
	}
	if !access.Valid() {
		return common.Errorf(common.ErrorInvalidArgument, "unknown access level %q", access)
	}
	return nil
}

// Share grants targetUserID READ or WRITE on fileID. Re-sharing with a
// different level overwrites the grant and clears Viewed.
func (s *PermissionService) Share(ctx context.Context, fileID, targetUserID string, access models.Access, requesterID string) (*models.Permission, error) {
	if err := s.requireOwner(ctx, fileID, requesterID); err != nil {
		return nil, err
	}
	if err := validateGrant(access); err != nil {
		return nil, err
	}
	if targetUserID == "" {
		return nil, common.Errorf(common.ErrorInvalidArgument, "target user is required")
	}
	if targetUserID == requesterID {
		return nil, common.Errorf(common.ErrorInvalidArgument, "cannot share a file with yourself")
	}

	repo := s.repomanager.Permissions(s.db)

	p := &models.Permission{FileID: fileID, UserID: targetUserID, Access: access}

	existing, err := repo.Get(ctx, fileID, targetUserID)
	switch {
	case err == nil:
		if existing.Access == models.AccessOwner {
			return nil, common.Errorf(common.ErrorInvalidArgument, "user %s owns file %s", targetUserID, fileID)
		}
		p.ID = existing.ID
		if existing.Access == access {
			p.Viewed = existing.Viewed
		}
	case !errors.Is(err, common.ErrorNotFound):
		return nil, err
	}

	if err := repo.Upsert(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "file shared", "file_id", fileID, "user_id", targetUserID, "access", access)
	return p, nil
}

// UpdateAccess changes the level of an existing grant and clears Viewed.
func (s *PermissionService) UpdateAccess(ctx context.Context, permissionID string, access models.Access, requesterID string) (*models.Permission, error) {
	repo := s.repomanager.Permissions(s.db)

	p, err := repo.GetByID(ctx, permissionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Errorf(common.ErrorNotFound, "permission %s", permissionID)
		}
		return nil, err
	}

	if err := s.requireOwner(ctx, p.FileID, requesterID); err != nil {
		return nil, err
	}
	if err := validateGrant(access); err != nil {
		return nil, err
	}
	if p.Access == models.AccessOwner {
		return nil, common.Errorf(common.ErrorInvalidArgument, "owner access cannot be changed")
	}

	// A grant revoked since it was read stays revoked.
	if err := repo.SetAccess(ctx, p.ID, access); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Errorf(common.ErrorNotFound, "permission %s", permissionID)
		}
		return nil, err
	}
	p.Access = access
	p.Viewed = false

	s.logger.Info(ctx, "permission updated", "permission_id", p.ID, "access", access)
	return p, nil
}

// Revoke deletes a READ or WRITE grant. The owner grant goes away only with
// the file.
func (s *PermissionService) Revoke(ctx context.Context, permissionID, requesterID string) error {
	repo := s.repomanager.Permissions(s.db)

	p, err := repo.GetByID(ctx, permissionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.Errorf(common.ErrorNotFound, "permission %s", permissionID)
		}
		return err
	}

	if err := s.requireOwner(ctx, p.FileID, requesterID); err != nil {
		return err
	}
	if p.Access == models.AccessOwner {
		return common.Errorf(common.ErrorInvalidArgument, "owner permission cannot be revoked")
	}

	if err := repo.Delete(ctx, p.FileID, p.UserID); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return err
	}

	s.logger.Info(ctx, "permission revoked", "file_id", p.FileID, "user_id", p.UserID)
	return nil
}

// MarkViewed acknowledges a share notification on behalf of its grantee.
func (s *PermissionService) MarkViewed(ctx context.Context, permissionID, userID string) (*models.Permission, error) {
	repo := s.repomanager.Permissions(s.db)

	p, err := repo.GetByID(ctx, permissionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Errorf(common.ErrorNotFound, "permission %s", permissionID)
		}
		return nil, err
	}

	if p.UserID != userID {
		return nil, common.Errorf(common.ErrorForbidden, "permission %s belongs to another user", permissionID)
	}

	if !p.Viewed {
		if err := repo.SetViewed(ctx, p.ID, true); err != nil {
			return nil, err
		}
		p.Viewed = true
	}

	return p, nil
}

func (s *PermissionService) sharedWith(ctx context.Context, userID string, viewed bool) ([]*models.Permission, error) {
	all, err := s.repomanager.Permissions(s.db).ListByUser(ctx, userID, models.AccessOwner)
	if err != nil {
		return nil, err
	}

	result := make([]*models.Permission, 0, len(all))
	for _, p := range all {
		if p.Viewed == viewed {
			result = append(result, p)
		}
	}
	return result, nil
}

// SharedWith returns the user's unacknowledged grants.
func (s *PermissionService) SharedWith(ctx context.Context, userID string) ([]*models.Permission, error) {
	return s.sharedWith(ctx, userID, false)
}

// AcceptedSharedWith returns the user's acknowledged grants.
func (s *PermissionService) AcceptedSharedWith(ctx context.Context, userID string) ([]*models.Permission, error) {
	return s.sharedWith(ctx, userID, true)
}

// FilePermissions lists every grant on fileID. Only the owner may ask.
func (s *PermissionService) FilePermissions(ctx context.Context, fileID, requesterID string) ([]*models.Permission, error) {
	if err := s.requireOwner(ctx, fileID, requesterID); err != nil {
		return nil, err
	}
	return s.repomanager.Permissions(s.db).ListByFile(ctx, fileID)
}

// FileOwner returns the id of the user holding OWNER on fileID.
func (s *PermissionService) FileOwner(ctx context.Context, fileID string) (string, error) {
	all, err := s.repomanager.Permissions(s.db).ListByFile(ctx, fileID)
	if err != nil {
		return "", err
	}
	for _, p := range all {
		if p.Access == models.AccessOwner {
			return p.UserID, nil
		}
	}
	return "", common.Errorf(common.ErrorNotFound, "owner of file %s", fileID)
}

// revokeAll removes every grant on fileID, including the owner's. It is
// only used when the file itself is deleted.
func (s *PermissionService) revokeAll(ctx context.Context, db dbx.DBTX, fileID string) error {
	return s.repomanager.Permissions(db).DeleteAllForFile(ctx, fileID)
}
