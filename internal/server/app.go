// Package server wires the Vaultify services to their storage backends and
// runs the gRPC API, the presigned URL HTTP endpoint and the background
// sweepers until the process is told to stop.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/vaultify/internal/filex"
	"github.com/dmitrijs2005/vaultify/internal/logging"
	"github.com/dmitrijs2005/vaultify/internal/server/blob"
	"github.com/dmitrijs2005/vaultify/internal/server/config"
	"github.com/dmitrijs2005/vaultify/internal/server/httpapi"
	"github.com/dmitrijs2005/vaultify/internal/server/idempotency"
	"github.com/dmitrijs2005/vaultify/internal/server/ratelimit"
	"github.com/dmitrijs2005/vaultify/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/vaultify/internal/server/services"
	"github.com/dmitrijs2005/vaultify/internal/server/sweeper"
	"github.com/dmitrijs2005/vaultify/internal/server/tokens"
	_ "github.com/jackc/pgx/v5/stdlib"

	gs "github.com/dmitrijs2005/vaultify/internal/server/grpc"
)

// closer releases a backend handle on shutdown.
type closer struct {
	name  string
	close func() error
}

type App struct {
	config   *config.Config
	logger   logging.Logger
	grpc     *gs.GRPCServer
	http     *httpapi.HTTPServer
	sweepers []*sweeper.Sweeper
	closers  []closer
}

var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// NewApp opens the database, applies migrations and builds every service
// with the backends selected in c.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (_ *App, err error) {
	app := &App{config: c, logger: logger.With("module", "app")}

	defer func() {
		if err != nil {
			app.close(ctx)
		}
	}()

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	app.closers = append(app.closers, closer{"database", db.Close})

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	blobs, err := newBlobStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	tokenStore, err := app.newTokenStore(c)
	if err != nil {
		return nil, fmt.Errorf("token store init error: %w", err)
	}

	cache, err := app.newIdempotencyCache(c, logger)
	if err != nil {
		return nil, fmt.Errorf("idempotency cache init error: %w", err)
	}

	limiter := ratelimit.New(rateLimitClasses(c), c.RateLimitIdleTTL)

	perms := services.NewPermissionService(db, rm, logger)
	files := services.NewFileService(db, rm, blobs, perms, logger)
	tokenSvc := tokens.NewService(tokenStore, c.PresignTTL, c.PublicBaseURL, logger.With("module", "tokens"))
	presign := services.NewPresignService(files, perms, tokenSvc, cache, logger)

	app.grpc = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, gs.Services{
		Files:       files,
		Permissions: perms,
		Presign:     presign,
		Idempotency: cache,
		Limiter:     limiter,
	}, c.SecretKey)
	app.http = httpapi.NewHTTPServer(c.EndpointAddrHTTP, logger, presign, limiter, c.ShutdownTimeout)

	app.sweepers = newSweepers(c, tokenSvc, cache, limiter, logger)

	return app, nil
}

func newBlobStore(ctx context.Context, c *config.Config) (blob.Store, error) {
	switch c.BlobDriver {
	case "memory":
		return blob.NewMemoryStore(), nil
	case "s3":
		return blob.NewS3Store(ctx, blob.S3Config{
			RootUser:     c.S3RootUser,
			RootPassword: c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	default:
		return nil, fmt.Errorf("unknown blob driver %q", c.BlobDriver)
	}
}

func (app *App) newTokenStore(c *config.Config) (tokens.Store, error) {
	switch c.TokenStoreDriver {
	case "memory":
		return tokens.NewMemoryStore(), nil
	case "redis":
		s, err := tokens.NewRedisStore(c.RedisAddr, c.RedisPassword, c.RedisDB)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, closer{"redis", s.Close})
		return s, nil
	default:
		return nil, fmt.Errorf("unknown token store driver %q", c.TokenStoreDriver)
	}
}

// sweepableCache is an idempotency cache that needs periodic maintenance.
type sweepableCache interface {
	idempotency.Cache
	Sweep(ctx context.Context) (int, error)
}

func (app *App) newIdempotencyCache(c *config.Config, logger logging.Logger) (sweepableCache, error) {
	switch c.IdempotencyDriver {
	case "memory":
		return idempotency.NewMemoryCache(c.IdempotencyRetention), nil
	case "badger":
		dir, err := filex.EnsureDir(c.BadgerPath)
		if err != nil {
			return nil, err
		}
		bc, err := idempotency.NewBadgerCache(dir, c.IdempotencyRetention, logger)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, closer{"badger", bc.Close})
		return bc, nil
	default:
		return nil, fmt.Errorf("unknown idempotency driver %q", c.IdempotencyDriver)
	}
}

func rateLimitClasses(c *config.Config) map[string]ratelimit.Class {
	classes := make(map[string]ratelimit.Class, len(c.RateLimits))
	for name, rl := range c.RateLimits {
		classes[name] = ratelimit.Class{Capacity: rl.Capacity, Window: rl.Window}
	}
	return classes
}

func newSweepers(c *config.Config, t *tokens.Service, cache sweepableCache, l *ratelimit.Limiter, logger logging.Logger) []*sweeper.Sweeper {
	return []*sweeper.Sweeper{
		sweeper.New("tokens", c.TokenSweepInterval, t.Sweep, logger),
		sweeper.New("idempotency", c.IdempotencySweepInterval, cache.Sweep, logger),
		sweeper.New("ratelimit", c.RateLimitIdleTTL, l.Sweep, logger),
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled, a signal arrives or a server fails.
// Backends are closed before it returns.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	for _, s := range app.sweepers {
		s.Start()
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	run := func(name string, fn func(context.Context) error) {
		defer wg.Done()
		if err := fn(ctx); err != nil {
			app.logger.Error(ctx, "server failed", "server", name, "error", err)
			mu.Lock()
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			mu.Unlock()
			cancelFunc()
		}
	}

	wg.Add(2)
	go run("grpc", app.grpc.Run)
	go run("http", app.http.Run)
	wg.Wait()

	app.close(ctx)
	app.logger.Info(ctx, "App stopped")

	return errors.Join(errs...)
}

// close stops the sweepers and releases backends in reverse order of
// acquisition.
func (app *App) close(ctx context.Context) {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.config.ShutdownTimeout)
	defer cancel()

	for _, s := range app.sweepers {
		if err := s.Stop(stopCtx); err != nil {
			app.logger.Warn(ctx, "sweeper stop failed", "error", err)
		}
	}

	for i := len(app.closers) - 1; i >= 0; i-- {
		c := app.closers[i]
		if err := c.close(); err != nil {
			app.logger.Warn(ctx, "close failed", "resource", c.name, "error", err)
		}
	}
	app.closers = nil
}
