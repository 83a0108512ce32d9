package tokens

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/vaultify/internal/common"
	"github.com/dmitrijs2005/vaultify/internal/server/models"
)

type memoryEntry struct {
	token     models.DelegatedToken
	expiresAt time.Time
}

// MemoryStore is a process-local Store. Expired entries are dropped on
// lookup and by Sweep.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(key string, t *models.DelegatedToken, ttl time.Duration) error {
	s.mu.Lock()
	s.entries[key] = memoryEntry{token: *t, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(key string) (*models.DelegatedToken, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, common.ErrorNotFound
	}

	if !s.now().Before(e.expiresAt) {
		s.mu.Lock()
		// re-check: a concurrent Put may have replaced the entry
		if cur, ok := s.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, common.ErrorNotFound
	}

	t := e.token
	return &t, nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Sweep removes every entry expired at now and returns how many were removed.
// Keys are collected under the read lock and deleted one at a time so that
// request paths are never blocked for the length of a full scan.
func (s *MemoryStore) Sweep(now time.Time) int {
	var expired []string

	s.mu.RLock()
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			expired = append(expired, k)
		}
	}
	s.mu.RUnlock()

	removed := 0
	for _, k := range expired {
		s.mu.Lock()
		if e, ok := s.entries[k]; ok && !now.Before(e.expiresAt) {
			delete(s.entries, k)
			removed++
		}
		s.mu.Unlock()
	}

	return removed
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
