// Package ratelimit admits or rejects requests per client and per endpoint
// class using continuously refilling token buckets.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultClass is used for unknown class names.
const DefaultClass = "api"

// Class is a bucket shape: Capacity requests per Window, refilled
// continuously at Capacity/Window.
type Class struct {
	Capacity int
	Window   time.Duration
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed bool
	// Class is the resolved class name.
	Class string
	// Limit is the class capacity.
	Limit int
	// Remaining is the number of whole tokens left after this request.
	Remaining int
	// ResetAt is when the bucket will be full again if left idle.
	ResetAt time.Time
	// RetryAfter is how long until one token is available. Zero when allowed.
	RetryAfter time.Duration
}

type bucketKey struct {
	client string
	class  string
}

type bucket struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter holds one bucket per (client, class). Buckets are created on first
// use and evicted by Sweep after IdleTTL without requests.
type Limiter struct {
	mu      sync.RWMutex
	classes map[string]Class
	buckets map[bucketKey]*bucket
	idleTTL time.Duration
	now     func() time.Time
}

func New(classes map[string]Class, idleTTL time.Duration) *Limiter {
	cs := make(map[string]Class, len(classes)+1)
	for name, c := range classes {
		cs[name] = c
	}
	if _, ok := cs[DefaultClass]; !ok {
		cs[DefaultClass] = Class{Capacity: 100, Window: time.Minute}
	}

	return &Limiter{
		classes: cs,
		buckets: make(map[bucketKey]*bucket),
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

func (l *Limiter) resolve(class string) (string, Class) {
	if c, ok := l.classes[class]; ok {
		return class, c
	}
	return DefaultClass, l.classes[DefaultClass]
}

func (l *Limiter) bucket(key bucketKey, c Class) *bucket {
	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[key]; ok {
		return b
	}
	b = &bucket{
		limiter:  rate.NewLimiter(rate.Every(c.Window/time.Duration(c.Capacity)), c.Capacity),
		lastSeen: l.now(),
	}
	l.buckets[key] = b
	return b
}

// Allow consumes one token from the (clientKey, class) bucket if one is
// available. Check and consume happen atomically.
func (l *Limiter) Allow(clientKey, class string) Decision {
	name, c := l.resolve(class)
	b := l.bucket(bucketKey{client: clientKey, class: name}, c)

	now := l.now()

	b.mu.Lock()
	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)
	b.lastSeen = now
	b.mu.Unlock()

	perToken := c.Window / time.Duration(c.Capacity)

	d := Decision{
		Allowed:   allowed,
		Class:     name,
		Limit:     c.Capacity,
		Remaining: int(math.Max(0, math.Floor(tokens))),
		ResetAt:   now.Add(refill(float64(c.Capacity)-tokens, perToken)),
	}
	if !allowed {
		d.Remaining = 0
		d.RetryAfter = refill(1-tokens, perToken)
	}
	return d
}

// refill returns the time needed to gain missing tokens, rounded up to
// whole seconds.
func refill(missing float64, perToken time.Duration) time.Duration {
	if missing <= 0 {
		return 0
	}
	secs := math.Ceil(missing*perToken.Seconds() - 1e-9)
	return time.Duration(secs) * time.Second
}

// Sweep evicts buckets idle for longer than the idle TTL.
func (l *Limiter) Sweep(ctx context.Context) (int, error) {
	cutoff := l.now().Add(-l.idleTTL)
	var idle []bucketKey

	l.mu.RLock()
	for k, b := range l.buckets {
		b.mu.Lock()
		if b.lastSeen.Before(cutoff) {
			idle = append(idle, k)
		}
		b.mu.Unlock()
	}
	l.mu.RUnlock()

	removed := 0
	for _, k := range idle {
		l.mu.Lock()
		if b, ok := l.buckets[k]; ok {
			b.mu.Lock()
			if b.lastSeen.Before(cutoff) {
				delete(l.buckets, k)
				removed++
			}
			b.mu.Unlock()
		}
		l.mu.Unlock()
	}

	return removed, nil
}

// Len returns the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buckets)
}
