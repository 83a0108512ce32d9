package grpc

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/vaultify/internal/common"
	"github.com/dmitrijs2005/vaultify/internal/logging"
	"github.com/dmitrijs2005/vaultify/internal/server/auth"
	"github.com/dmitrijs2005/vaultify/internal/server/blob"
	"github.com/dmitrijs2005/vaultify/internal/server/config"
	"github.com/dmitrijs2005/vaultify/internal/server/idempotency"
	"github.com/dmitrijs2005/vaultify/internal/server/ratelimit"
	"github.com/dmitrijs2005/vaultify/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/vaultify/internal/server/services"
	"github.com/dmitrijs2005/vaultify/internal/server/tokens"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
	_ "modernc.org/sqlite"
)

const testSecret = "test-secret"

func defaultClasses() map[string]ratelimit.Class {
	return map[string]ratelimit.Class{
		config.RateLimitAuth:   {Capacity: 5, Window: time.Minute},
		config.RateLimitUpload: {Capacity: 10, Window: time.Minute},
		config.RateLimitAPI:    {Capacity: 100, Window: time.Minute},
	}
}

func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestServer(t *testing.T, classes map[string]ratelimit.Class) *GRPCServer {
	t.Helper()
	s, _ := newTestServerWithTokens(t, classes)
	return s
}

// newTestServerWithTokens also returns the token service behind the
// presigned URLs.
func newTestServerWithTokens(t *testing.T, classes map[string]ratelimit.Class) (*GRPCServer, *tokens.Service) {
	t.Helper()

	db := newTxDB(t)
	log := logging.Nop()
	repos := repomanager.NewInMemoryRepositoryManager()

	perms := services.NewPermissionService(db, repos, log)
	files := services.NewFileService(db, repos, blob.NewMemoryStore(), perms, log)
	tokenSvc := tokens.NewService(tokens.NewMemoryStore(), time.Minute, "http://vault.test", log)
	cache := idempotency.NewMemoryCache(time.Hour)

	s := NewGRPCServer("bufnet", log, Services{
		Files:       files,
		Permissions: perms,
		Presign:     services.NewPresignService(files, perms, tokenSvc, cache, log),
		Idempotency: cache,
		Limiter:     ratelimit.New(classes, time.Hour),
	}, testSecret)
	return s, tokenSvc
}

// startBufconn serves s over an in-process listener and returns a client.
func startBufconn(t *testing.T, s *GRPCServer) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-done
	})

	return NewClient(conn)
}

// as returns a context carrying an access token for userID.
func as(t *testing.T, userID string) context.Context {
	t.Helper()
	token, err := auth.GenerateToken(userID, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, token)
}
