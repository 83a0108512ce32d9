package idempotency

import (
	"context"
	"sync"
	"time"
)

type record struct {
	response  []byte
	createdAt time.Time
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu        sync.RWMutex
	records   map[string]record
	retention time.Duration
	now       func() time.Time
}

func NewMemoryCache(retention time.Duration) *MemoryCache {
	return &MemoryCache{
		records:   make(map[string]record),
		retention: retention,
		now:       time.Now,
	}
}

func (c *MemoryCache) expired(r record, now time.Time) bool {
	return !now.Before(r.createdAt.Add(c.retention))
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	r, ok := c.records[key]
	c.mu.RUnlock()

	if !ok || c.expired(r, c.now()) {
		return nil, false
	}

	out := make([]byte, len(r.response))
	copy(out, r.response)
	return out, true
}

func (c *MemoryCache) Put(key string, response []byte) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.records[key]; ok && !c.expired(r, now) {
		return
	}

	buf := make([]byte, len(response))
	copy(buf, response)
	c.records[key] = record{response: buf, createdAt: now}
}

// Sweep drops expired records.
func (c *MemoryCache) Sweep(ctx context.Context) (int, error) {
	now := c.now()
	var expired []string

	c.mu.RLock()
	for k, r := range c.records {
		if c.expired(r, now) {
			expired = append(expired, k)
		}
	}
	c.mu.RUnlock()

	removed := 0
	for _, k := range expired {
		c.mu.Lock()
		if r, ok := c.records[k]; ok && c.expired(r, now) {
			delete(c.records, k)
			removed++
		}
		c.mu.Unlock()
	}

	return removed, nil
}

// Len returns the number of records, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
