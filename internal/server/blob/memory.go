package blob

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/vaultify/internal/common"
)

// MemoryStore keeps blobs in process memory. It backs tests and
// single-process development setups.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := newStorageKey()
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.blobs[key] = buf
	s.mu.Unlock()

	return key, nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.blobs[key]
	s.mu.RUnlock()

	if !ok {
		return nil, common.Errorf(common.ErrorNotFound, "blob %s", key)
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.blobs, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
