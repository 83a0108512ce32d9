package blob

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/vaultify/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	data := []byte("payload")
	key, err := s.Put(ctx, data, "application/octet-stream")
	require.NoError(t, err)
	data[0] = 'P'

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got, "stored copy must not alias the caller's slice")

	other, err := s.Put(ctx, data, "")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
	assert.Equal(t, 2, s.Len())

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().Put(ctx, []byte("x"), "")
	assert.ErrorIs(t, err, context.Canceled)
}
