package services

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dmitrijs2005/vaultify/internal/common"
	"github.com/dmitrijs2005/vaultify/internal/dbx"
	"github.com/dmitrijs2005/vaultify/internal/logging"
	"github.com/dmitrijs2005/vaultify/internal/server/blob"
	"github.com/dmitrijs2005/vaultify/internal/server/models"
	"github.com/dmitrijs2005/vaultify/internal/server/repositories/repomanager"
)

const defaultContentType = "application/octet-stream"

// FileService manages folders and file content. Every operation is gated by
// PermissionService.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blob.Store
	perms       *PermissionService
	logger      logging.Logger
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, blobs blob.Store, perms *PermissionService, logger logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		perms:       perms,
		logger:      logger.With("service", "files"),
	}
}

func (s *FileService) CreateFolder(ctx context.Context, userID, name string) (*models.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.Errorf(common.ErrorInvalidArgument, "folder name is required")
	}
	return s.repomanager.Folders(s.db).Create(ctx, &models.Folder{UserID: userID, Name: name})
}

// ownedFolder loads folderID and checks that userID owns it.
func (s *FileService) ownedFolder(ctx context.Context, folderID, userID string) (*models.Folder, error) {
	if folderID == "" {
		return nil, common.Errorf(common.ErrorInvalidArgument, "folder id is required")
	}
	folder, err := s.repomanager.Folders(s.db).GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.UserID != userID {
		return nil, common.Errorf(common.ErrorForbidden, "folder %s belongs to another user", folderID)
	}
	return folder, nil
}

// GetFile returns file metadata without any access check.
func (s *FileService) GetFile(ctx context.Context, fileID string) (*models.File, error) {
	if fileID == "" {
		return nil, common.Errorf(common.ErrorInvalidArgument, "file id is required")
	}
	return s.repomanager.Files(s.db).GetByID(ctx, fileID)
}

// Upload stores data as a new file in a folder owned by userID. userID
// becomes the file's owner.
func (s *FileService) Upload(ctx context.Context, userID, folderID, name, contentType string, data []byte) (*models.File, error) {
	if _, err := s.ownedFolder(ctx, folderID, userID); err != nil {
		return nil, err
	}
	return s.create(ctx, userID, folderID, name, contentType, data)
}

// create writes the blob, then the file row and its owner grant in one
// transaction. The blob is removed again if the transaction fails.
func (s *FileService) create(ctx context.Context, ownerID, folderID, name, contentType string, data []byte) (*models.File, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.Errorf(common.ErrorInvalidArgument, "file name is required")
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	key, err := s.blobs.Put(ctx, data, contentType)
	if err != nil {
		return nil, err
	}

	file := &models.File{
		FolderID:     folderID,
		OwnerID:      ownerID,
		OriginalName: name,
		ContentType:  contentType,
		Size:         int64(len(data)),
		StorageKey:   key,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Files(tx).Create(ctx, file); err != nil {
			return err
		}
		return s.perms.GrantOwner(ctx, tx, file.ID, ownerID)
	})
	if err != nil {
		if derr := s.blobs.Delete(context.WithoutCancel(ctx), key); derr != nil {
			s.logger.Error(ctx, "orphaned blob after failed upload", "storage_key", key, "error", derr)
		}
		return nil, err
	}

	s.logger.Info(ctx, "file stored", "file_id", file.ID, "folder_id", folderID, "user_id", ownerID, "size", file.Size)
	return file, nil
}

// Download returns the file and its content if userID may read it.
func (s *FileService) Download(ctx context.Context, userID, fileID string) (*models.File, []byte, error) {
	file, err := s.GetFile(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}

	ok, err := s.perms.HasRead(ctx, fileID, userID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, common.Errorf(common.ErrorForbidden, "no read access to file %s", fileID)
	}

	data, err := s.blobs.Get(ctx, file.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return file, data, nil
}

// Delete removes a file, every grant on it and finally its content. Only the
// owner may delete.
func (s *FileService) Delete(ctx context.Context, userID, fileID string) error {
	file, err := s.GetFile(ctx, fileID)
	if err != nil {
		return err
	}

	ok, err := s.perms.IsOwner(ctx, fileID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return common.Errorf(common.ErrorForbidden, "only the owner can delete file %s", fileID)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.perms.revokeAll(ctx, tx, fileID); err != nil {
			return err
		}
		return s.repomanager.Files(tx).Delete(ctx, fileID)
	})
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, file.StorageKey); err != nil {
		s.logger.Error(ctx, "blob delete failed", "storage_key", file.StorageKey, "error", err)
	}

	s.logger.Info(ctx, "file deleted", "file_id", fileID, "user_id", userID)
	return nil
}

// CopyShared copies a file userID may write into a folder userID owns. The
// copy is a new file owned by userID.
func (s *FileService) CopyShared(ctx context.Context, userID, fileID, targetFolderID string) (*models.File, error) {
	src, err := s.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	ok, err := s.perms.HasWrite(ctx, fileID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.Errorf(common.ErrorForbidden, "no write access to file %s", fileID)
	}

	if _, err := s.ownedFolder(ctx, targetFolderID, userID); err != nil {
		return nil, err
	}

	data, err := s.blobs.Get(ctx, src.StorageKey)
	if err != nil {
		return nil, err
	}

	return s.create(ctx, userID, targetFolderID, src.OriginalName, src.ContentType, data)
}

// ListFolder returns the files in folderID that userID can read, each with
// userID's access level.
func (s *FileService) ListFolder(ctx context.Context, userID, folderID string) ([]*models.FileView, error) {
	if folderID == "" {
		return nil, common.Errorf(common.ErrorInvalidArgument, "folder id is required")
	}
	if _, err := s.repomanager.Folders(s.db).GetByID(ctx, folderID); err != nil {
		return nil, err
	}

	files, err := s.repomanager.Files(s.db).ListByFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}

	result := make([]*models.FileView, 0, len(files))
	for _, f := range files {
		access, err := s.perms.access(ctx, f.ID, userID)
		if err != nil {
			return nil, err
		}
		if access.Allows(models.AccessRead) {
			result = append(result, &models.FileView{File: f, Access: access})
		}
	}
	return result, nil
}
