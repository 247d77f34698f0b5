package cache

import (
	"context"
	"errors"
	"time"

	"github.com/allegro/bigcache/v3"
)

// MemoryProvider is an embedded in-process cache. Entry lifetime is fixed at
// construction; the per-call ttl argument is accepted for interface parity
// but entries expire on the configured window.
type MemoryProvider struct {
	cache *bigcache.BigCache
}

// NewMemoryProvider builds an embedded cache with the given entry lifetime
// and memory ceiling.
func NewMemoryProvider(ctx context.Context, ttl time.Duration, maxSizeMB int) (*MemoryProvider, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	cfg := bigcache.DefaultConfig(ttl)
	cfg.CleanWindow = ttl / 2
	if maxSizeMB > 0 {
		cfg.HardMaxCacheSize = maxSizeMB
	}

	c, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &MemoryProvider{cache: c}, nil
}

// Get returns the cached value or ErrCacheMiss.
func (m *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	value, err := m.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return value, nil
}

// Set stores the value under key.
func (m *MemoryProvider) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	return m.cache.Set(key, value)
}

// Del removes a key. Deleting an absent key is not an error.
func (m *MemoryProvider) Del(_ context.Context, key string) error {
	if err := m.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return err
	}
	return nil
}

// Close releases the cache resources.
func (m *MemoryProvider) Close() error {
	return m.cache.Close()
}
