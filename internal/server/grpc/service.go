package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "vaultify.v1.VaultService"

// Method names, as they appear after the service name in a full method.
const (
	MethodCreateFolder         = "CreateFolder"
	MethodUploadFile           = "UploadFile"
	MethodDownloadFile         = "DownloadFile"
	MethodDeleteFile           = "DeleteFile"
	MethodListFolder           = "ListFolder"
	MethodCopySharedFile       = "CopySharedFile"
	MethodShareFile            = "ShareFile"
	MethodUpdatePermission     = "UpdatePermission"
	MethodRevokePermission     = "RevokePermission"
	MethodMarkPermissionViewed = "MarkPermissionViewed"
	MethodListFilePermissions  = "ListFilePermissions"
	MethodListSharedWithMe     = "ListSharedWithMe"
	MethodIssueUploadURL       = "IssueUploadURL"
	MethodIssueDownloadURL     = "IssueDownloadURL"
)

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// VaultServiceServer is the server API of VaultService.
type VaultServiceServer interface {
	CreateFolder(context.Context, *CreateFolderRequest) (*FolderInfo, error)
	UploadFile(context.Context, *UploadFileRequest) (*FileInfo, error)
	DownloadFile(context.Context, *FileRequest) (*DownloadFileResponse, error)
	DeleteFile(context.Context, *FileRequest) (*Empty, error)
	ListFolder(context.Context, *ListFolderRequest) (*ListFolderResponse, error)
	CopySharedFile(context.Context, *CopySharedFileRequest) (*FileInfo, error)
	ShareFile(context.Context, *ShareFileRequest) (*PermissionInfo, error)
	UpdatePermission(context.Context, *UpdatePermissionRequest) (*PermissionInfo, error)
	RevokePermission(context.Context, *PermissionRequest) (*Empty, error)
	MarkPermissionViewed(context.Context, *PermissionRequest) (*PermissionInfo, error)
	ListFilePermissions(context.Context, *FileRequest) (*PermissionList, error)
	ListSharedWithMe(context.Context, *ListSharedWithMeRequest) (*PermissionList, error)
	IssueUploadURL(context.Context, *IssueUploadURLRequest) (*PresignedURL, error)
	IssueDownloadURL(context.Context, *FileRequest) (*PresignedURL, error)
}

// unary adapts a typed server method to a grpc.MethodDesc.
func unary[Req, Resp any](name string, call func(VaultServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(VaultServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// VaultServiceDesc describes VaultService for grpc.Server.RegisterService.
var VaultServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VaultServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodCreateFolder, VaultServiceServer.CreateFolder),
		unary(MethodUploadFile, VaultServiceServer.UploadFile),
		unary(MethodDownloadFile, VaultServiceServer.DownloadFile),
		unary(MethodDeleteFile, VaultServiceServer.DeleteFile),
		unary(MethodListFolder, VaultServiceServer.ListFolder),
		unary(MethodCopySharedFile, VaultServiceServer.CopySharedFile),
		unary(MethodShareFile, VaultServiceServer.ShareFile),
		unary(MethodUpdatePermission, VaultServiceServer.UpdatePermission),
		unary(MethodRevokePermission, VaultServiceServer.RevokePermission),
		unary(MethodMarkPermissionViewed, VaultServiceServer.MarkPermissionViewed),
		unary(MethodListFilePermissions, VaultServiceServer.ListFilePermissions),
		unary(MethodListSharedWithMe, VaultServiceServer.ListSharedWithMe),
		unary(MethodIssueUploadURL, VaultServiceServer.IssueUploadURL),
		unary(MethodIssueDownloadURL, VaultServiceServer.IssueDownloadURL),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vaultify/v1/vault.proto",
}

// RegisterVaultServiceServer registers srv on s.
func RegisterVaultServiceServer(s grpc.ServiceRegistrar, srv VaultServiceServer) {
	s.RegisterService(&VaultServiceDesc, srv)
}
