package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// Client calls VaultService over cc using the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateFolder(ctx context.Context, in *CreateFolderRequest, opts ...grpc.CallOption) (*FolderInfo, error) {
	return invoke[FolderInfo](ctx, c, MethodCreateFolder, in, opts...)
}

func (c *Client) UploadFile(ctx context.Context, in *UploadFileRequest, opts ...grpc.CallOption) (*FileInfo, error) {
	return invoke[FileInfo](ctx, c, MethodUploadFile, in, opts...)
}

func (c *Client) DownloadFile(ctx context.Context, in *FileRequest, opts ...grpc.CallOption) (*DownloadFileResponse, error) {
	return invoke[DownloadFileResponse](ctx, c, MethodDownloadFile, in, opts...)
}

func (c *Client) DeleteFile(ctx context.Context, in *FileRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, MethodDeleteFile, in, opts...)
}

func (c *Client) ListFolder(ctx context.Context, in *ListFolderRequest, opts ...grpc.CallOption) (*ListFolderResponse, error) {
	return invoke[ListFolderResponse](ctx, c, MethodListFolder, in, opts...)
}

func (c *Client) CopySharedFile(ctx context.Context, in *CopySharedFileRequest, opts ...grpc.CallOption) (*FileInfo, error) {
	return invoke[FileInfo](ctx, c, MethodCopySharedFile, in, opts...)
}

func (c *Client) ShareFile(ctx context.Context, in *ShareFileRequest, opts ...grpc.CallOption) (*PermissionInfo, error) {
	return invoke[PermissionInfo](ctx, c, MethodShareFile, in, opts...)
}

func (c *Client) UpdatePermission(ctx context.Context, in *UpdatePermissionRequest, opts ...grpc.CallOption) (*PermissionInfo, error) {
	return invoke[PermissionInfo](ctx, c, MethodUpdatePermission, in, opts...)
}

func (c *Client) RevokePermission(ctx context.Context, in *PermissionRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, MethodRevokePermission, in, opts...)
}

func (c *Client) MarkPermissionViewed(ctx context.Context, in *PermissionRequest, opts ...grpc.CallOption) (*PermissionInfo, error) {
	return invoke[PermissionInfo](ctx, c, MethodMarkPermissionViewed, in, opts...)
}

func (c *Client) ListFilePermissions(ctx context.Context, in *FileRequest, opts ...grpc.CallOption) (*PermissionList, error) {
	return invoke[PermissionList](ctx, c, MethodListFilePermissions, in, opts...)
}

func (c *Client) ListSharedWithMe(ctx context.Context, in *ListSharedWithMeRequest, opts ...grpc.CallOption) (*PermissionList, error) {
	return invoke[PermissionList](ctx, c, MethodListSharedWithMe, in, opts...)
}

func (c *Client) IssueUploadURL(ctx context.Context, in *IssueUploadURLRequest, opts ...grpc.CallOption) (*PresignedURL, error) {
	return invoke[PresignedURL](ctx, c, MethodIssueUploadURL, in, opts...)
}

func (c *Client) IssueDownloadURL(ctx context.Context, in *FileRequest, opts ...grpc.CallOption) (*PresignedURL, error) {
	return invoke[PresignedURL](ctx, c, MethodIssueDownloadURL, in, opts...)
}
