// Package cache provides the short-TTL unified-record cache backed by
// Badger. Entries expire on their own; readers never see stale records past
// the configured TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crossquote/internal/common"
	"github.com/ternarybob/crossquote/internal/interfaces"
	"github.com/ternarybob/crossquote/internal/models"
)

const keyPrefix = "record:"

// BadgerCache implements interfaces.RecordCache on a Badger store. An empty
// path opens an in-memory store, which tests and ephemeral deployments use.
type BadgerCache struct {
	db     *badger.DB
	ttl    time.Duration
	logger arbor.ILogger
}

func New(config common.CacheConfig, logger arbor.ILogger) (*BadgerCache, error) {
	if logger == nil {
		logger = common.GetLogger()
	}

	var opts badger.Options
	if config.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(config.Path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		opts = badger.DefaultOptions(config.Path)
	}
	opts = opts.WithLogger(nil) // arbor handles logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}

	ttl := common.Duration(config.TTL, 3*time.Minute)
	// Badger stores entry expiry at one-second granularity; a shorter TTL
	// truncates to an already-expired entry.
	if ttl < time.Second {
		ttl = time.Second
	}
	logger.Debug().Str("path", config.Path).Str("ttl", ttl.String()).Msg("Record cache initialized")

	return &BadgerCache{
		db:     db,
		ttl:    ttl,
		logger: logger,
	}, nil
}

func cacheKey(symbol string) []byte {
	return []byte(keyPrefix + strings.ToUpper(strings.TrimSpace(symbol)))
}

// Get returns the cached unified record for a symbol. Expired and missing
// entries both report a plain miss.
func (c *BadgerCache) Get(ctx context.Context, symbol string) (*models.UnifiedRecord, bool) {
	var record models.UnifiedRecord
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(symbol))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Cache read failed")
		}
		return nil, false
	}
	return &record, true
}

// Put stores a unified record under its symbol with the configured TTL.
func (c *BadgerCache) Put(ctx context.Context, symbol string, record *models.UnifiedRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record for cache: %w", err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(cacheKey(symbol), data).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Close releases the underlying store.
func (c *BadgerCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Disabled is the no-op cache wired when caching is turned off in config.
type Disabled struct{}

func (Disabled) Get(ctx context.Context, symbol string) (*models.UnifiedRecord, bool) {
	return nil, false
}
func (Disabled) Put(ctx context.Context, symbol string, record *models.UnifiedRecord) error {
	return nil
}
func (Disabled) Close() error { return nil }

var _ interfaces.RecordCache = (*BadgerCache)(nil)
var _ interfaces.RecordCache = Disabled{}
