package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/vaultify/internal/common"
	"github.com/dmitrijs2005/vaultify/internal/server/auth"
	"github.com/dmitrijs2005/vaultify/internal/server/config"
	"github.com/dmitrijs2005/vaultify/internal/server/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func withToken(token string) context.Context {
	md := metadata.New(map[string]string{common.AccessTokenHeaderName: token})
	return metadata.NewIncomingContext(context.Background(), md)
}

func TestIdentityInterceptor(t *testing.T) {
	s := newTestServer(t, defaultClasses())
	info := &grpc.UnaryServerInfo{FullMethod: fullMethod(MethodCreateFolder)}

	valid, err := auth.GenerateToken("user-123", []byte(testSecret), time.Hour)
	require.NoError(t, err)
	expired, err := auth.GenerateToken("user-123", []byte(testSecret), -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name    string
		ctx     context.Context
		wantID  string
		wantErr error
	}{
		{name: "valid", ctx: withToken(valid), wantID: "user-123"},
		{name: "missing", ctx: context.Background(), wantErr: common.ErrorUnauthorized},
		{name: "malformed", ctx: withToken("not-a-jwt"), wantErr: common.ErrInvalidToken},
		{name: "expired", ctx: withToken(expired), wantErr: common.ErrTokenExpired},
		{name: "wrong secret", ctx: withToken(mustToken(t, "other")), wantErr: common.ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got principal
			h := func(ctx context.Context, req any) (any, error) {
				got, _ = ctx.Value(principalKey).(principal)
				return "ok", nil
			}

			resp, err := s.identityInterceptor(tt.ctx, nil, info, h)
			require.NoError(t, err, "identity never rejects")
			assert.Equal(t, "ok", resp)
			assert.Equal(t, tt.wantID, got.userID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, got.err, tt.wantErr)
			}
		})
	}
}

func mustToken(t *testing.T, secret string) string {
	t.Helper()
	token, err := auth.GenerateToken("user-123", []byte(secret), time.Hour)
	require.NoError(t, err)
	return token
}

func TestRequirePrincipalInterceptor(t *testing.T) {
	s := newTestServer(t, defaultClasses())
	info := &grpc.UnaryServerInfo{FullMethod: fullMethod(MethodCreateFolder)}

	called := false
	h := func(ctx context.Context, req any) (any, error) {
		called = true
		return "ok", nil
	}

	_, err := s.requirePrincipalInterceptor(context.Background(), nil, info, h)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.False(t, called)

	ctx := context.WithValue(context.Background(), principalKey, principal{err: common.ErrTokenExpired})
	_, err = s.requirePrincipalInterceptor(ctx, nil, info, h)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "expired")
	assert.False(t, called)

	ctx = context.WithValue(context.Background(), principalKey, principal{userID: "alice"})
	resp, err := s.requirePrincipalInterceptor(ctx, nil, info, h)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.True(t, called)
}

func TestRateClass(t *testing.T) {
	assert.Equal(t, config.RateLimitAuth, rateClass(fullMethod(MethodUploadFile), false))
	assert.Equal(t, config.RateLimitUpload, rateClass(fullMethod(MethodUploadFile), true))
	assert.Equal(t, config.RateLimitUpload, rateClass(fullMethod(MethodCopySharedFile), true))
	assert.Equal(t, config.RateLimitAPI, rateClass(fullMethod(MethodShareFile), true))
}

func TestClientKey(t *testing.T) {
	ctx := context.WithValue(context.Background(), principalKey, principal{userID: "alice"})
	assert.Equal(t, "user:alice", clientKey(ctx))

	addr := &net.TCPAddr{IP: net.ParseIP("10.0.0.7"), Port: 5123}
	ctx = peer.NewContext(context.Background(), &peer.Peer{Addr: addr})
	assert.Equal(t, "ip:10.0.0.7", clientKey(ctx))

	assert.Equal(t, "ip:unknown", clientKey(context.Background()))
}

func TestRateLimitInterceptor_Denies(t *testing.T) {
	classes := defaultClasses()
	classes[config.RateLimitAPI] = ratelimit.Class{Capacity: 2, Window: time.Minute}
	s := newTestServer(t, classes)

	info := &grpc.UnaryServerInfo{FullMethod: fullMethod(MethodListFolder)}
	ctx := context.WithValue(context.Background(), principalKey, principal{userID: "alice"})
	h := func(ctx context.Context, req any) (any, error) { return "ok", nil }

	for i := 0; i < 2; i++ {
		_, err := s.rateLimitInterceptor(ctx, nil, info, h)
		require.NoError(t, err)
	}

	_, err := s.rateLimitInterceptor(ctx, nil, info, h)
	st := status.Convert(err)
	assert.Equal(t, codes.ResourceExhausted, st.Code())

	var retry *errdetails.RetryInfo
	for _, d := range st.Details() {
		if ri, ok := d.(*errdetails.RetryInfo); ok {
			retry = ri
		}
	}
	require.NotNil(t, retry)
	assert.Equal(t, 30*time.Second, retry.GetRetryDelay().AsDuration())

	// other users have their own bucket
	other := context.WithValue(context.Background(), principalKey, principal{userID: "bob"})
	_, err = s.rateLimitInterceptor(other, nil, info, h)
	assert.NoError(t, err)
}

func TestRateLimit_UnauthenticatedChargedToAuthClass(t *testing.T) {
	classes := defaultClasses()
	classes[config.RateLimitAuth] = ratelimit.Class{Capacity: 2, Window: time.Minute}
	c := startBufconn(t, newTestServer(t, classes))

	for i := 0; i < 2; i++ {
		_, err := c.CreateFolder(context.Background(), &CreateFolderRequest{Name: "x"})
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	}

	_, err := c.CreateFolder(context.Background(), &CreateFolderRequest{Name: "x"})
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	// authenticated traffic is keyed by user and unaffected
	_, err = c.CreateFolder(as(t, "alice"), &CreateFolderRequest{Name: "x"})
	assert.NoError(t, err)
}
