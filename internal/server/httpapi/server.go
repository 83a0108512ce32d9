// Package httpapi serves presigned URLs: plain HTTP links that redeem a
// delegated token without any other credentials.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/vaultify/internal/logging"
	"github.com/dmitrijs2005/vaultify/internal/server/config"
	"github.com/dmitrijs2005/vaultify/internal/server/ratelimit"
	"github.com/dmitrijs2005/vaultify/internal/server/services"
	"github.com/dmitrijs2005/vaultify/internal/server/tokens"
	"github.com/gorilla/mux"
)

// maxUploadBytes caps the body of a presigned upload.
const maxUploadBytes = 100 << 20

type HTTPServer struct {
	address         string
	presign         *services.PresignService
	limiter         *ratelimit.Limiter
	logger          logging.Logger
	shutdownTimeout time.Duration
	handler         http.Handler
}

func NewHTTPServer(a string, l logging.Logger, presign *services.PresignService, limiter *ratelimit.Limiter, shutdownTimeout time.Duration) *HTTPServer {
	s := &HTTPServer{
		address:         a,
		presign:         presign,
		limiter:         limiter,
		logger:          l.With("module", "http_server"),
		shutdownTimeout: shutdownTimeout,
	}

	router := mux.NewRouter()
	router.Use(s.logRequests)

	router.Handle(tokens.PresignPath+"read",
		s.rateLimit(config.RateLimitAPI, http.HandlerFunc(s.handlePresignRead))).Methods(http.MethodGet)
	router.Handle(tokens.PresignPath+"write",
		s.rateLimit(config.RateLimitUpload, http.HandlerFunc(s.handlePresignWrite))).Methods(http.MethodPost, http.MethodPut)

	s.handler = router
	return s
}

// Handler returns the routed handler, for embedding and tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *HTTPServer) serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-stopped
}
