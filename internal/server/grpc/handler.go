package grpc

import (
	"context"

	"github.com/dmitrijs2005/vaultify/internal/common"
	"github.com/dmitrijs2005/vaultify/internal/server/idempotency"
	"github.com/dmitrijs2005/vaultify/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// caller returns the authenticated user id set by the interceptor chain.
func caller(ctx context.Context) (string, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "unauthenticated")
	}
	return userID, nil
}

// idempotencyKey returns the namespaced key from request metadata, or "".
func idempotencyKey(ctx context.Context, namespace string) string {
	k := metadataValue(ctx, common.IdempotencyKeyHeaderName)
	if k == "" {
		return ""
	}
	return idempotency.Key(namespace, k)
}

func (s *GRPCServer) CreateFolder(ctx context.Context, req *CreateFolderRequest) (*FolderInfo, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	folder, err := s.files.CreateFolder(ctx, userID, req.Name)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return folderInfo(folder), nil
}

func (s *GRPCServer) UploadFile(ctx context.Context, req *UploadFileRequest) (*FileInfo, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	key := idempotencyKey(ctx, idempotency.NamespaceUpload)
	if cached, ok := idempotency.Lookup[FileInfo](s.cache, key); ok {
		s.logger.Debug(ctx, "idempotent replay", "method", MethodUploadFile)
		return &cached, nil
	}

	file, err := s.files.Upload(ctx, userID, req.FolderID, req.Name, req.ContentType, req.Data)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	res := fileInfo(file, models.AccessOwner)
	idempotency.Store(s.cache, key, res)
	return &res, nil
}

func (s *GRPCServer) DownloadFile(ctx context.Context, req *FileRequest) (*DownloadFileResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	file, data, err := s.files.Download(ctx, userID, req.FileID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &DownloadFileResponse{File: fileInfo(file, ""), Data: data}, nil
}

func (s *GRPCServer) DeleteFile(ctx context.Context, req *FileRequest) (*Empty, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.files.Delete(ctx, userID, req.FileID); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &Empty{}, nil
}

func (s *GRPCServer) ListFolder(ctx context.Context, req *ListFolderRequest) (*ListFolderResponse, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	views, err := s.files.ListFolder(ctx, userID, req.FolderID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	res := &ListFolderResponse{Files: make([]FileInfo, 0, len(views))}
	for _, v := range views {
		res.Files = append(res.Files, fileInfo(v.File, v.Access))
	}
	return res, nil
}

func (s *GRPCServer) CopySharedFile(ctx context.Context, req *CopySharedFileRequest) (*FileInfo, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	key := idempotencyKey(ctx, idempotency.NamespaceCopy)
	if cached, ok := idempotency.Lookup[FileInfo](s.cache, key); ok {
		s.logger.Debug(ctx, "idempotent replay", "method", MethodCopySharedFile)
		return &cached, nil
	}

	file, err := s.files.CopyShared(ctx, userID, req.FileID, req.TargetFolderID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	res := fileInfo(file, models.AccessOwner)
	idempotency.Store(s.cache, key, res)
	return &res, nil
}

func (s *GRPCServer) ShareFile(ctx context.Context, req *ShareFileRequest) (*PermissionInfo, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	access, err := models.ParseAccess(req.Access)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	p, err := s.perms.Share(ctx, req.FileID, req.UserID, access, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	res := permissionInfo(p)
	return &res, nil
}

func (s *GRPCServer) UpdatePermission(ctx context.Context, req *UpdatePermissionRequest) (*PermissionInfo, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	access, err := models.ParseAccess(req.Access)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	p, err := s.perms.UpdateAccess(ctx, req.PermissionID, access, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	res := permissionInfo(p)
	return &res, nil
}

func (s *GRPCServer) RevokePermission(ctx context.Context, req *PermissionRequest) (*Empty, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.perms.Revoke(ctx, req.PermissionID, userID); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &Empty{}, nil
}

func (s *GRPCServer) MarkPermissionViewed(ctx context.Context, req *PermissionRequest) (*PermissionInfo, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.perms.MarkViewed(ctx, req.PermissionID, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	res := permissionInfo(p)
	return &res, nil
}

func (s *GRPCServer) ListFilePermissions(ctx context.Context, req *FileRequest) (*PermissionList, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	ps, err := s.perms.FilePermissions(ctx, req.FileID, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return permissionList(ps), nil
}

func (s *GRPCServer) ListSharedWithMe(ctx context.Context, req *ListSharedWithMeRequest) (*PermissionList, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	list := s.perms.SharedWith
	if req.Accepted {
		list = s.perms.AcceptedSharedWith
	}

	ps, err := list(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return permissionList(ps), nil
}

func (s *GRPCServer) IssueUploadURL(ctx context.Context, req *IssueUploadURLRequest) (*PresignedURL, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	u, err := s.presign.IssueUploadURL(ctx, req.FolderID, req.FileID, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &PresignedURL{Token: u.Token, URL: u.URL, ExpiresInSeconds: u.ExpiresInSeconds}, nil
}

func (s *GRPCServer) IssueDownloadURL(ctx context.Context, req *FileRequest) (*PresignedURL, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	u, err := s.presign.IssueDownloadURL(ctx, req.FileID, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &PresignedURL{Token: u.Token, URL: u.URL, ExpiresInSeconds: u.ExpiresInSeconds}, nil
}
