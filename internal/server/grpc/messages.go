package grpc

import (
	"time"

	"github.com/dmitrijs2005/vaultify/internal/server/models"
)

type Empty struct{}

type CreateFolderRequest struct {
	Name string `json:"name"`
}

type FolderInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type UploadFileRequest struct {
	FolderID    string `json:"folderId"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

// FileInfo is file metadata plus the caller's access level on it.
type FileInfo struct {
	ID           string    `json:"id"`
	FolderID     string    `json:"folderId"`
	OwnerID      string    `json:"ownerId"`
	OriginalName string    `json:"originalName"`
	ContentType  string    `json:"contentType"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
	Access       string    `json:"access,omitempty"`
}

type FileRequest struct {
	FileID string `json:"fileId"`
}

type DownloadFileResponse struct {
	File FileInfo `json:"file"`
	Data []byte   `json:"data"`
}

type ListFolderRequest struct {
	FolderID string `json:"folderId"`
}

type ListFolderResponse struct {
	Files []FileInfo `json:"files"`
}

type CopySharedFileRequest struct {
	FileID         string `json:"fileId"`
	TargetFolderID string `json:"targetFolderId"`
}

type ShareFileRequest struct {
	FileID string `json:"fileId"`
	UserID string `json:"userId"`
	Access string `json:"access"`
}

type PermissionInfo struct {
	ID     string `json:"id"`
	FileID string `json:"fileId"`
	UserID string `json:"userId"`
	Access string `json:"access"`
	Viewed bool   `json:"viewed"`
}

type UpdatePermissionRequest struct {
	PermissionID string `json:"permissionId"`
	Access       string `json:"access"`
}

type PermissionRequest struct {
	PermissionID string `json:"permissionId"`
}

type ListSharedWithMeRequest struct {
	// Accepted selects acknowledged shares instead of pending ones.
	Accepted bool `json:"accepted"`
}

type PermissionList struct {
	Permissions []PermissionInfo `json:"permissions"`
}

type IssueUploadURLRequest struct {
	FolderID string `json:"folderId,omitempty"`
	FileID   string `json:"fileId,omitempty"`
}

type PresignedURL struct {
	Token            string `json:"token"`
	URL              string `json:"url"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

func folderInfo(f *models.Folder) *FolderInfo {
	return &FolderInfo{ID: f.ID, Name: f.Name, CreatedAt: f.CreatedAt}
}

func fileInfo(f *models.File, access models.Access) FileInfo {
	return FileInfo{
		ID:           f.ID,
		FolderID:     f.FolderID,
		OwnerID:      f.OwnerID,
		OriginalName: f.OriginalName,
		ContentType:  f.ContentType,
		Size:         f.Size,
		CreatedAt:    f.CreatedAt,
		Access:       string(access),
	}
}

func permissionInfo(p *models.Permission) PermissionInfo {
	return PermissionInfo{
		ID:     p.ID,
		FileID: p.FileID,
		UserID: p.UserID,
		Access: string(p.Access),
		Viewed: p.Viewed,
	}
}

func permissionList(ps []*models.Permission) *PermissionList {
	out := &PermissionList{Permissions: make([]PermissionInfo, 0, len(ps))}
	for _, p := range ps {
		out.Permissions = append(out.Permissions, permissionInfo(p))
	}
	return out
}
