// Package sweeper runs periodic background cleanup such as purging expired
// delegated tokens and idempotency entries.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/vaultify/internal/logging"
)

// Func performs one sweep and reports how many items it removed.
type Func func(ctx context.Context) (int, error)

// Sweeper calls a Func every Interval until stopped.
type Sweeper struct {
	name     string
	interval time.Duration
	sweep    Func
	logger   logging.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

func New(name string, interval time.Duration, sweep Func, logger logging.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		name:     name,
		interval: interval,
		sweep:    sweep,
		logger:   logger.With("sweeper", name),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the worker goroutine. Calling it more than once has no effect.
func (s *Sweeper) Start() {
	s.startOnce.Do(func() {
		s.logger.Info(context.Background(), "sweeper started", "interval", s.interval.String())
		go s.worker()
	})
}

// Stop signals the worker and waits for it to exit or for ctx to expire.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	// A sweeper that was never started has no worker to wait for.
	s.startOnce.Do(func() { close(s.doneCh) })

	select {
	case <-s.doneCh:
		return nil
	case <-ctx.Done():
		s.logger.Warn(ctx, "sweeper shutdown timeout")
		return ctx.Err()
	}
}

// RunNow performs one sweep synchronously.
func (s *Sweeper) RunNow(ctx context.Context) (int, error) {
	return s.sweep(ctx)
}

func (s *Sweeper) worker() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			n, err := s.sweep(ctx)
			cancel()

			if err != nil {
				s.logger.Error(ctx, "sweep failed", "error", err)
			} else if n > 0 {
				s.logger.Debug(ctx, "sweep completed", "removed", n)
			}

		case <-s.stopCh:
			return
		}
	}
}
