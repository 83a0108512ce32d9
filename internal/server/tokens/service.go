package tokens

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/vaultify/internal/common"
	"github.com/dmitrijs2005/vaultify/internal/logging"
	"github.com/dmitrijs2005/vaultify/internal/server/models"
	"github.com/dmitrijs2005/vaultify/internal/shared"
)

// PresignPath is the HTTP path prefix under which tokens are redeemed; the
// action name is appended.
const PresignPath = "/api/v1/files/presign/"

// secretSize is the number of random bytes in a bearer secret.
const secretSize = 32

// sweepable is implemented by stores that need explicit expiry.
type sweepable interface {
	Sweep(now time.Time) int
}

// Service mints, validates and invalidates delegated tokens. It performs no
// permission checks; callers authorize the issuer before calling Issue.
type Service struct {
	store   Store
	ttl     time.Duration
	baseURL string
	logger  logging.Logger
	now     func() time.Time
}

func NewService(store Store, ttl time.Duration, baseURL string, logger logging.Logger) *Service {
	return &Service{
		store:   store,
		ttl:     ttl,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		now:     time.Now,
	}
}

// TTL returns the lifetime given to every issued token.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue stores claims under a fresh secret and returns the URL embedding it.
// IssuedAt and TTL of claims are overwritten.
func (s *Service) Issue(ctx context.Context, claims models.DelegatedToken) (*models.PresignedURL, error) {
	secret, err := shared.MakeRandHexString(secretSize)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	claims.IssuedAt = s.now()
	claims.TTL = s.ttl

	if err := s.store.Put(shared.Digest(secret), &claims, s.ttl); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}

	s.logger.Debug(ctx, "delegated token issued", "action", claims.Action, "user_id", claims.UserID,
		"file_id", claims.FileID, "folder_id", claims.FolderID)

	return &models.PresignedURL{
		Token:            secret,
		URL:              s.baseURL + PresignPath + string(claims.Action) + "?token=" + url.QueryEscape(secret),
		ExpiresInSeconds: int64(s.ttl / time.Second),
	}, nil
}

// Validate returns the claims behind secret without consuming them. Absent
// and expired tokens both yield common.ErrorInvalidOrExpired; expired ones
// are removed from the store.
func (s *Service) Validate(ctx context.Context, secret string) (*models.DelegatedToken, error) {
	if secret == "" {
		return nil, common.Errorf(common.ErrorInvalidOrExpired, "token is required")
	}

	key := shared.Digest(secret)
	t, err := s.store.Get(key)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Errorf(common.ErrorInvalidOrExpired, "token is invalid or expired")
		}
		return nil, fmt.Errorf("load token: %w", err)
	}

	if t.Expired(s.now()) {
		s.Invalidate(ctx, secret)
		return nil, common.Errorf(common.ErrorInvalidOrExpired, "token is invalid or expired")
	}

	return t, nil
}

// Invalidate deletes the token. It never fails; store errors are logged and
// the token then expires on its own.
func (s *Service) Invalidate(ctx context.Context, secret string) {
	if secret == "" {
		return
	}
	if err := s.store.Delete(shared.Digest(secret)); err != nil {
		s.logger.Warn(ctx, "token invalidation failed", "error", err)
	}
}

// Sweep purges expired tokens from stores that do not expire keys themselves.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	if sw, ok := s.store.(sweepable); ok {
		return sw.Sweep(s.now()), nil
	}
	return 0, nil
}
