package normalizer

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// SecondLevelCache is the optional Redis-backed warm cache named in
// spec.md §8's config surface (cache_url): a restarted process recovers
// previously-resolved venue-symbol -> instrument_id mappings without
// re-querying Postgres for every symbol it has already seen. The
// in-memory cache in Normalizer remains authoritative within one process
// lifetime; this is purely a cold-start optimization.
type SecondLevelCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSecondLevelCache wraps an existing redis client.
func NewSecondLevelCache(client *redis.Client, ttl time.Duration) *SecondLevelCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SecondLevelCache{client: client, ttl: ttl}
}

func redisKey(source, ticker string) string {
	return "hadron:instrument:" + source + ":" + ticker
}

// Get returns the cached instrument id, if any.
func (c *SecondLevelCache) Get(ctx context.Context, source, ticker string) (int64, bool) {
	if c == nil || c.client == nil {
		return 0, false
	}
	val, err := c.client.Get(ctx, redisKey(source, ticker)).Result()
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Set stores the instrument id with the configured TTL.
func (c *SecondLevelCache) Set(ctx context.Context, source, ticker string, id int64) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Set(ctx, redisKey(source, ticker), strconv.FormatInt(id, 10), c.ttl)
}
