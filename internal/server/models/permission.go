package models

import (
	"strings"

	"github.com/dmitrijs2005/vaultify/internal/common"
)

// Access is one of the three access levels a user can hold on a file.
type Access string

const (
	AccessRead  Access = "READ"
	AccessWrite Access = "WRITE"
	AccessOwner Access = "OWNER"
)

// rank orders access levels so that a higher level implies every lower one.
func (a Access) rank() int {
	switch a {
	case AccessRead:
		return 1
	case AccessWrite:
		return 2
	case AccessOwner:
		return 3
	default:
		return 0
	}
}

// Allows reports whether holding a satisfies the required level.
func (a Access) Allows(required Access) bool {
	return a.rank() > 0 && a.rank() >= required.rank()
}

// Valid reports whether a is one of the known levels.
func (a Access) Valid() bool {
	return a.rank() > 0
}

// ParseAccess parses an access level name, case-insensitively.
func ParseAccess(s string) (Access, error) {
	a := Access(strings.ToUpper(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", common.Errorf(common.ErrorInvalidArgument, "unknown access level %q", s)
	}
	return a, nil
}

// Permission is one user's grant on one file. There is at most one
// Permission per (FileID, UserID) pair.
type Permission struct {
	ID     string
	FileID string
	UserID string
	Access Access
	// Viewed is set once the grantee acknowledged the share notification.
	// It is cleared whenever the access level changes.
	Viewed bool
}
