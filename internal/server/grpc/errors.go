package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/vaultify/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var kindCodes = map[error]codes.Code{
	common.ErrorNotFound:         codes.NotFound,
	common.ErrorForbidden:        codes.PermissionDenied,
	common.ErrorInvalidArgument:  codes.InvalidArgument,
	common.ErrorInvalidOrExpired: codes.Unauthenticated,
	common.ErrorUnauthorized:     codes.Unauthenticated,
	common.ErrInvalidToken:       codes.Unauthenticated,
	common.ErrTokenExpired:       codes.Unauthenticated,
	common.ErrorRateLimited:      codes.ResourceExhausted,
	common.ErrorConflict:         codes.AlreadyExists,
}

// toStatus converts a service error to a gRPC status error. Internal errors
// are logged and their detail is withheld from the caller.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	if code, ok := kindCodes[common.KindOf(err)]; ok {
		return status.Error(code, err.Error())
	}

	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}
