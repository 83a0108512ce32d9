package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dmitrijs2005/vaultify/internal/logging"
)

const badgerKeyPrefix = "idem/"

// BadgerCache persists responses in badger with the retention window as
// entry TTL, so records survive restarts and expire without a scan.
type BadgerCache struct {
	db        *badger.DB
	retention time.Duration
	logger    logging.Logger
}

// NewBadgerCache opens (or creates) a badger database at path. An empty path
// opens an in-memory database.
func NewBadgerCache(path string, retention time.Duration, logger logging.Logger) (*BadgerCache, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(badgerLogger{logger: logger}).WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", path, err)
	}

	return &BadgerCache{db: db, retention: retention, logger: logger}, nil
}

func (c *BadgerCache) Get(key string) ([]byte, bool) {
	var out []byte

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Warn(context.Background(), "idempotency lookup failed", "error", err)
		}
		return nil, false
	}

	return out, true
}

func (c *BadgerCache) Put(key string, response []byte) {
	k := []byte(badgerKeyPrefix + key)

	err := c.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(k)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.SetEntry(badger.NewEntry(k, response).WithTTL(c.retention))
	})
	// ErrConflict means a concurrent writer got there first.
	if err != nil && !errors.Is(err, badger.ErrConflict) {
		c.logger.Warn(context.Background(), "idempotency store failed", "error", err)
	}
}

// Sweep reclaims value log space held by expired entries. Expiry itself is
// enforced by badger, so the count is always zero.
func (c *BadgerCache) Sweep(ctx context.Context) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		err := c.db.RunValueLogGC(0.5)
		if err == nil {
			continue
		}
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return 0, nil
		}
		return 0, err
	}
}

func (c *BadgerCache) Close() error {
	return c.db.Close()
}

// badgerLogger routes badger's printf-style logs to the structured logger.
type badgerLogger struct {
	logger logging.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(context.Background(), fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(context.Background(), fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(context.Background(), fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(context.Background(), fmt.Sprintf(format, args...), "component", "badger")
}
