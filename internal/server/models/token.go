package models

import (
	"time"

	"github.com/dmitrijs2005/vaultify/internal/common"
)

// Action is the single operation a delegated token authorizes.
type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionRead, ActionWrite:
		return a, nil
	default:
		return "", common.Errorf(common.ErrorInvalidArgument, "action must be 'read' or 'write', got %q", s)
	}
}

// DelegatedToken is the stored state behind a presigned URL. The bearer
// secret itself is never part of it; stores key tokens by digest.
type DelegatedToken struct {
	// FileID is empty for folder-scoped write tokens.
	FileID   string        `json:"file_id,omitempty"`
	FolderID string        `json:"folder_id,omitempty"`
	Action   Action        `json:"action"`
	UserID   string        `json:"user_id"`
	IssuedAt time.Time     `json:"issued_at"`
	TTL      time.Duration `json:"ttl"`
}

// ExpiresAt is the first instant at which the token is no longer valid.
func (t *DelegatedToken) ExpiresAt() time.Time {
	return t.IssuedAt.Add(t.TTL)
}

// Expired reports whether the token is past its TTL at now.
func (t *DelegatedToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt())
}

// PresignedURL is returned to the caller that requested delegated access.
type PresignedURL struct {
	Token            string `json:"token"`
	URL              string `json:"url"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}
