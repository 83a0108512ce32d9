// Package grpc exposes the authenticated Vaultify API over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/vaultify/internal/logging"
	"github.com/dmitrijs2005/vaultify/internal/server/idempotency"
	"github.com/dmitrijs2005/vaultify/internal/server/ratelimit"
	"github.com/dmitrijs2005/vaultify/internal/server/services"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	address   string
	files     *services.FileService
	perms     *services.PermissionService
	presign   *services.PresignService
	cache     idempotency.Cache
	limiter   *ratelimit.Limiter
	logger    logging.Logger
	jwtSecret []byte
}

var _ VaultServiceServer = (*GRPCServer)(nil)

// Services bundles the application services the gRPC API delegates to.
type Services struct {
	Files       *services.FileService
	Permissions *services.PermissionService
	Presign     *services.PresignService
	Idempotency idempotency.Cache
	Limiter     *ratelimit.Limiter
}

func NewGRPCServer(a string, l logging.Logger, svc Services, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		files:     svc.Files,
		perms:     svc.Permissions,
		presign:   svc.Presign,
		cache:     svc.Idempotency,
		limiter:   svc.Limiter,
		jwtSecret: []byte(secretKey),
	}
}

// newServer builds the grpc.Server with the interceptor chain and the
// service registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		s.identityInterceptor,
		s.rateLimitInterceptor,
		s.requirePrincipalInterceptor,
	))
	RegisterVaultServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

// serve accepts connections on lis until ctx is done.
func (s *GRPCServer) serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
