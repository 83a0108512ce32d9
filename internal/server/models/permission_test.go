package models

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/vaultify/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccess_Allows(t *testing.T) {
	tests := []struct {
		held     Access
		required Access
		want     bool
	}{
		{AccessOwner, AccessOwner, true},
		{AccessOwner, AccessWrite, true},
		{AccessOwner, AccessRead, true},
		{AccessWrite, AccessWrite, true},
		{AccessWrite, AccessRead, true},
		{AccessWrite, AccessOwner, false},
		{AccessRead, AccessRead, true},
		{AccessRead, AccessWrite, false},
		{Access(""), AccessRead, false},
		{Access("ADMIN"), AccessRead, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.held)+"->"+string(tt.required), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.held.Allows(tt.required))
		})
	}
}

func TestParseAccess(t *testing.T) {
	a, err := ParseAccess(" write ")
	require.NoError(t, err)
	assert.Equal(t, AccessWrite, a)

	_, err = ParseAccess("admin")
	assert.ErrorIs(t, err, common.ErrorInvalidArgument)
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("read")
	require.NoError(t, err)
	assert.Equal(t, ActionRead, a)

	_, err = ParseAction("delete")
	assert.ErrorIs(t, err, common.ErrorInvalidArgument)
}

func TestDelegatedToken_Expired(t *testing.T) {
	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tok := &DelegatedToken{IssuedAt: issued, TTL: time.Minute}

	assert.False(t, tok.Expired(issued))
	assert.False(t, tok.Expired(issued.Add(59*time.Second)))
	assert.True(t, tok.Expired(issued.Add(time.Minute)))
	assert.Equal(t, issued.Add(time.Minute), tok.ExpiresAt())
}
