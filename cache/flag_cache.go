package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// FlagCache stores small boolean decisions with a TTL, so repeated reads
// within the window return a stable answer. Backs the per-account-per-day
// captcha gate.
type FlagCache interface {
	// GetOrSet returns the cached flag for key, or computes, stores and
	// returns it when absent.
	GetOrSet(ctx context.Context, key string, ttl time.Duration, compute func() bool) bool
	Close() error
}

// MemoryFlagCache implements FlagCache on ttlcache.
type MemoryFlagCache struct {
	cache *ttlcache.Cache[string, bool]
}

// NewMemoryFlagCache creates a flag cache with automatic expiry cleanup.
func NewMemoryFlagCache() *MemoryFlagCache {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, bool](),
	)

	// Start the cleanup process
	go cache.Start()

	return &MemoryFlagCache{cache: cache}
}

// GetOrSet implements FlagCache.GetOrSet.
func (c *MemoryFlagCache) GetOrSet(_ context.Context, key string, ttl time.Duration, compute func() bool) bool {
	if item := c.cache.Get(key); item != nil {
		return item.Value()
	}

	value := compute()
	c.cache.Set(key, value, ttl)
	return value
}

// Close stops the cleanup goroutine.
func (c *MemoryFlagCache) Close() error {
	c.cache.Stop()
	return nil
}
