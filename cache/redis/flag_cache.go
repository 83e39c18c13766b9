package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// FlagCache implements cache.FlagCache on Redis so the coin-flip style
// decisions it holds stay stable across service instances.
type FlagCache struct {
	client *redis.Client
	prefix string
}

// NewFlagCache creates a Redis-backed flag cache.
func NewFlagCache(client *redis.Client, prefix string) *FlagCache {
	return &FlagCache{client: client, prefix: prefix}
}

func (c *FlagCache) redisKey(key string) string {
	return c.prefix + ":flag:" + key
}

// GetOrSet implements cache.FlagCache.GetOrSet. The first writer wins:
// SET NX makes concurrent computes converge on a single stored answer.
func (c *FlagCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, compute func() bool) bool {
	redisKey := c.redisKey(key)

	value := compute()
	stored := "0"
	if value {
		stored = "1"
	}

	set, err := c.client.SetNX(ctx, redisKey, stored, ttl).Result()
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("flag cache unreachable, using computed value")
		return value
	}
	if set {
		return value
	}

	existing, err := c.client.Get(ctx, redisKey).Result()
	if err != nil {
		return value
	}
	return existing == "1"
}

// Close implements cache.FlagCache.Close. The Redis client is shared and
// owned by the caller.
func (c *FlagCache) Close() error {
	return nil
}
