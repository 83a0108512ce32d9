// Package common defines shared constants and sentinel errors used across
// the server layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Authorization and validation errors.
	ErrorForbidden        = errors.New("forbidden")
	ErrorInvalidArgument  = errors.New("invalid argument")
	ErrorInvalidOrExpired = errors.New("invalid or expired token")
	ErrorRateLimited      = errors.New("rate limit exceeded")
	ErrorConflict         = errors.New("conflict")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed access token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

var kinds = []error{
	ErrorNotFound,
	ErrorForbidden,
	ErrorInvalidArgument,
	ErrorInvalidOrExpired,
	ErrorRateLimited,
	ErrorConflict,
	ErrorUnauthorized,
	ErrInvalidToken,
	ErrTokenExpired,
}

// Errorf returns an error of the given kind carrying a human-readable message.
// The result matches kind with errors.Is.
func Errorf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// KindOf reports which sentinel err wraps. Anything unrecognized is
// ErrorInternal.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrorInternal
}
