package services

import (
	"context"

	"github.com/dmitrijs2005/vaultify/internal/common"
	"github.com/dmitrijs2005/vaultify/internal/logging"
	"github.com/dmitrijs2005/vaultify/internal/server/idempotency"
	"github.com/dmitrijs2005/vaultify/internal/server/models"
	"github.com/dmitrijs2005/vaultify/internal/server/tokens"
)

// DownloadResult is the outcome of redeeming a read token.
type DownloadResult struct {
	FileID       string `json:"fileId"`
	OriginalName string `json:"originalName"`
	ContentType  string `json:"contentType"`
	Data         []byte `json:"data"`
}

// UploadResult is the outcome of redeeming a write token.
type UploadResult struct {
	ID           string `json:"id"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
}

// PresignService issues delegated tokens after authorizing the issuer and
// redeems them: validate, check scope, run the file operation, invalidate.
// A failed operation leaves the token usable for a retry.
type PresignService struct {
	files  *FileService
	perms  *PermissionService
	tokens *tokens.Service
	cache  idempotency.Cache
	logger logging.Logger
}

func NewPresignService(files *FileService, perms *PermissionService, tokens *tokens.Service, cache idempotency.Cache, logger logging.Logger) *PresignService {
	return &PresignService{
		files:  files,
		perms:  perms,
		tokens: tokens,
		cache:  cache,
		logger: logger.With("service", "presign"),
	}
}

// Issue authorizes requesterID for action and mints a token.
//
// read needs fileID and read access. write needs either folderID owned by
// the requester, or fileID with write access, in which case the token is
// bound to the file's folder and the requester must own that folder too.
// When both ids are given they must agree.
func (s *PresignService) Issue(ctx context.Context, action models.Action, fileID, folderID, requesterID string) (*models.PresignedURL, error) {
	claims := models.DelegatedToken{Action: action, UserID: requesterID}

	switch action {
	case models.ActionRead:
		if fileID == "" {
			return nil, common.Errorf(common.ErrorInvalidArgument, "file id is required for read tokens")
		}
		file, err := s.files.GetFile(ctx, fileID)
		if err != nil {
			return nil, err
		}
		if folderID != "" && folderID != file.FolderID {
			return nil, common.Errorf(common.ErrorInvalidArgument, "file %s is not in folder %s", fileID, folderID)
		}
		if err := s.require(ctx, s.perms.HasRead, fileID, requesterID, "read"); err != nil {
			return nil, err
		}
		claims.FileID = file.ID
		claims.FolderID = file.FolderID

	case models.ActionWrite:
		switch {
		case fileID != "":
			file, err := s.files.GetFile(ctx, fileID)
			if err != nil {
				return nil, err
			}
			if folderID != "" && folderID != file.FolderID {
				return nil, common.Errorf(common.ErrorInvalidArgument, "file %s is not in folder %s", fileID, folderID)
			}
			if err := s.require(ctx, s.perms.HasWrite, fileID, requesterID, "write"); err != nil {
				return nil, err
			}
			if _, err := s.files.ownedFolder(ctx, file.FolderID, requesterID); err != nil {
				return nil, err
			}
			claims.FileID = file.ID
			claims.FolderID = file.FolderID
		case folderID != "":
			if _, err := s.files.ownedFolder(ctx, folderID, requesterID); err != nil {
				return nil, err
			}
			claims.FolderID = folderID
		default:
			return nil, common.Errorf(common.ErrorInvalidArgument, "folder id or file id is required for write tokens")
		}

	default:
		return nil, common.Errorf(common.ErrorInvalidArgument, "action must be 'read' or 'write', got %q", action)
	}

	return s.tokens.Issue(ctx, claims)
}

func (s *PresignService) require(ctx context.Context, check func(context.Context, string, string) (bool, error), fileID, userID, right string) error {
	ok, err := check(ctx, fileID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return common.Errorf(common.ErrorForbidden, "no %s access to file %s", right, fileID)
	}
	return nil
}

// IssueUploadURL mints a write token.
func (s *PresignService) IssueUploadURL(ctx context.Context, folderID, fileID, requesterID string) (*models.PresignedURL, error) {
	return s.Issue(ctx, models.ActionWrite, fileID, folderID, requesterID)
}

// IssueDownloadURL mints a read token.
func (s *PresignService) IssueDownloadURL(ctx context.Context, fileID, requesterID string) (*models.PresignedURL, error) {
	return s.Issue(ctx, models.ActionRead, fileID, "", requesterID)
}

// validate loads the claims behind token and checks they are for action.
func (s *PresignService) validate(ctx context.Context, token string, action models.Action) (*models.DelegatedToken, error) {
	claims, err := s.tokens.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	if claims.Action != action {
		return nil, common.Errorf(common.ErrorInvalidArgument, "token is not valid for %s", action)
	}
	return claims, nil
}

// ConsumeRead redeems a read token. The issuer's read access is checked
// again at use time. A non-empty idempotencyKey returns the cached result of
// an earlier successful call.
func (s *PresignService) ConsumeRead(ctx context.Context, token, idempotencyKey string) (*DownloadResult, error) {
	key := ""
	if idempotencyKey != "" {
		key = idempotency.Key(idempotency.NamespacePresignRead, idempotencyKey)
	}
	if cached, ok := idempotency.Lookup[DownloadResult](s.cache, key); ok {
		return &cached, nil
	}

	claims, err := s.validate(ctx, token, models.ActionRead)
	if err != nil {
		return nil, err
	}

	file, data, err := s.files.Download(ctx, claims.UserID, claims.FileID)
	if err != nil {
		return nil, err
	}

	res := &DownloadResult{
		FileID:       file.ID,
		OriginalName: file.OriginalName,
		ContentType:  file.ContentType,
		Data:         data,
	}

	idempotency.Store(s.cache, key, res)
	s.tokens.Invalidate(ctx, token)

	s.logger.Info(ctx, "presigned download", "file_id", file.ID, "issuer", claims.UserID)
	return res, nil
}

func writeKey(idempotencyKey string) string {
	if idempotencyKey == "" {
		return ""
	}
	return idempotency.Key(idempotency.NamespacePresignWrite, idempotencyKey)
}

// writeClaims validates a write token against the folder named by the caller.
func (s *PresignService) writeClaims(ctx context.Context, token, folderID string) (*models.DelegatedToken, error) {
	claims, err := s.validate(ctx, token, models.ActionWrite)
	if err != nil {
		return nil, err
	}
	if claims.FolderID == "" {
		return nil, common.Errorf(common.ErrorInvalidArgument, "token is missing folder information")
	}
	if folderID != "" && folderID != claims.FolderID {
		return nil, common.Errorf(common.ErrorForbidden, "token cannot be used for folder %s", folderID)
	}
	return claims, nil
}

// CheckWrite runs the checks of ConsumeWrite that do not need the payload.
// It returns the cached result for idempotencyKey if there is one, nil when
// the token may be redeemed, or the error ConsumeWrite would return. The
// token is not consumed.
func (s *PresignService) CheckWrite(ctx context.Context, token, folderID, idempotencyKey string) (*UploadResult, error) {
	if cached, ok := idempotency.Lookup[UploadResult](s.cache, writeKey(idempotencyKey)); ok {
		return &cached, nil
	}
	if _, err := s.writeClaims(ctx, token, folderID); err != nil {
		return nil, err
	}
	return nil, nil
}

// ConsumeWrite redeems a write token by storing data as a new file in the
// token's folder. folderID, when given, must equal that folder.
func (s *PresignService) ConsumeWrite(ctx context.Context, token, folderID, name, contentType string, data []byte, idempotencyKey string) (*UploadResult, error) {
	key := writeKey(idempotencyKey)
	if cached, ok := idempotency.Lookup[UploadResult](s.cache, key); ok {
		return &cached, nil
	}

	claims, err := s.writeClaims(ctx, token, folderID)
	if err != nil {
		return nil, err
	}

	if claims.FileID != "" {
		if err := s.require(ctx, s.perms.HasWrite, claims.FileID, claims.UserID, "write"); err != nil {
			return nil, err
		}
	}
	// Upload rechecks that the issuer still owns the target folder.
	file, err := s.files.Upload(ctx, claims.UserID, claims.FolderID, name, contentType, data)
	if err != nil {
		return nil, err
	}

	res := &UploadResult{ID: file.ID, OriginalName: file.OriginalName, Size: file.Size}

	idempotency.Store(s.cache, key, res)
	s.tokens.Invalidate(ctx, token)

	s.logger.Info(ctx, "presigned upload", "file_id", file.ID, "folder_id", claims.FolderID, "issuer", claims.UserID)
	return res, nil
}
