package grpc

import (
	"context"
	"net"
	"strconv"

	"github.com/dmitrijs2005/vaultify/internal/common"
	"github.com/dmitrijs2005/vaultify/internal/server/auth"
	"github.com/dmitrijs2005/vaultify/internal/server/config"
	"github.com/dmitrijs2005/vaultify/internal/server/ratelimit"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
)

type ctxKey string

const principalKey ctxKey = "principal"

// Rate limit response metadata keys.
const (
	headerRateLimitLimit     = "x-ratelimit-limit"
	headerRateLimitRemaining = "x-ratelimit-remaining"
	headerRateLimitReset     = "x-ratelimit-reset"
	headerRateLimitType      = "x-ratelimit-type"
)

// principal is the identity resolved from the access token. err is set when
// a token was presented but rejected.
type principal struct {
	userID string
	err    error
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(principalKey).(principal)
	if !ok || p.userID == "" {
		return "", false
	}
	return p.userID, true
}

func metadataValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// identityInterceptor resolves the principal from the access_token metadata.
// It never rejects; requirePrincipalInterceptor does.
func (s *GRPCServer) identityInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	var p principal

	if accessToken := metadataValue(ctx, common.AccessTokenHeaderName); accessToken == "" {
		p.err = common.Errorf(common.ErrorUnauthorized, "missing token")
	} else if userID, err := auth.GetUserIDFromToken(accessToken, s.jwtSecret); err != nil {
		p.err = err
	} else {
		p.userID = userID
	}

	return handler(context.WithValue(ctx, principalKey, p), req)
}

// rateClass picks the bucket a call is charged to.
func rateClass(method string, authenticated bool) string {
	if !authenticated {
		return config.RateLimitAuth
	}
	switch method {
	case fullMethod(MethodUploadFile), fullMethod(MethodCopySharedFile):
		return config.RateLimitUpload
	default:
		return config.RateLimitAPI
	}
}

// clientKey identifies the caller for rate limiting: the user when known,
// otherwise the peer address.
func clientKey(ctx context.Context) string {
	if userID, ok := UserIDFromContext(ctx); ok {
		return "user:" + userID
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		addr := p.Addr.String()
		if host, _, err := net.SplitHostPort(addr); err == nil {
			addr = host
		}
		return "ip:" + addr
	}
	return "ip:unknown"
}

func (s *GRPCServer) rateLimitInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	_, authenticated := UserIDFromContext(ctx)
	d := s.limiter.Allow(clientKey(ctx), rateClass(info.FullMethod, authenticated))

	// SetHeader fails only outside a server stream, e.g. in direct calls.
	_ = grpc.SetHeader(ctx, metadata.Pairs(
		headerRateLimitLimit, strconv.Itoa(d.Limit),
		headerRateLimitRemaining, strconv.Itoa(d.Remaining),
		headerRateLimitReset, strconv.FormatInt(d.ResetAt.Unix(), 10),
		headerRateLimitType, d.Class,
	))

	if !d.Allowed {
		s.logger.Warn(ctx, "rate limit exceeded", "method", info.FullMethod, "class", d.Class)
		return nil, rateLimitedStatus(d)
	}

	return handler(ctx, req)
}

func rateLimitedStatus(d ratelimit.Decision) error {
	st := status.Newf(codes.ResourceExhausted, "rate limit exceeded for %s, retry in %s", d.Class, d.RetryAfter)
	withRetry, err := st.WithDetails(&errdetails.RetryInfo{RetryDelay: durationpb.New(d.RetryAfter)})
	if err != nil {
		return st.Err()
	}
	return withRetry.Err()
}

func (s *GRPCServer) requirePrincipalInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	p, _ := ctx.Value(principalKey).(principal)
	if p.userID == "" {
		err := p.err
		if err == nil {
			err = common.ErrorUnauthorized
		}
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	return handler(ctx, req)
}
