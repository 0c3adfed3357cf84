package utils

import (
	"context"
	"time"

	"github.com/allegro/bigcache/v3"
)

// LocalCache is an in-process byte cache backed by bigcache. Entries expire after the
// configured life window; callers serialize values themselves.
type LocalCache struct {
	cache *bigcache.BigCache
}

// NewLocalCache creates a cache capped at capacityMB with the given entry lifetime.
func NewLocalCache(capacityMB int, life time.Duration) (*LocalCache, error) {
	cfg := bigcache.DefaultConfig(life)
	cfg.Shards = 16
	cfg.MaxEntriesInWindow = 256
	cfg.HardMaxCacheSize = capacityMB
	cfg.MaxEntrySize = 4 * 1024
	cfg.CleanWindow = life

	cache, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return &LocalCache{cache: cache}, nil
}

// Get returns the stored bytes.
func (c *LocalCache) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.cache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores bytes under key.
func (c *LocalCache) Set(key string, value []byte) {
	if c == nil {
		return
	}
	if err := c.cache.Set(key, value); err != nil {
		Sugar.Debugf("local cache set failed key=%s err=%v", key, err)
	}
}

// Delete removes key; a missing key is fine.
func (c *LocalCache) Delete(key string) {
	if c == nil {
		return
	}
	_ = c.cache.Delete(key)
}

// Close releases the cache's background cleaner.
func (c *LocalCache) Close() error {
	if c == nil {
		return nil
	}
	return c.cache.Close()
}
