package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Cache holds collected event sets so repeated audits of the same rule and
// range skip the upstream store. A miss returns false; cache failures are
// treated as misses.
type Cache interface {
	Get(ctx context.Context, key string) ([]Event, bool)
	Set(ctx context.Context, key string, events []Event)
}

// RedisCache stores event sets as JSON blobs with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]Event, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("event cache read")
		return nil, false
	}
	var events []Event
	if err := json.Unmarshal(raw, &events); err != nil {
		log.Error().Err(err).Str("key", key).Msg("event cache decode")
		return nil, false
	}
	return events, true
}

func (c *RedisCache) Set(ctx context.Context, key string, events []Event) {
	raw, err := json.Marshal(events)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("event cache encode")
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("event cache write")
	}
}

// cacheKey folds the query shape and range into a stable redis key.
func cacheKey(f Filter, start, end time.Time) string {
	return fmt.Sprintf("ruleaudit:events:%s:%s:%d:%d", f.Pattern, f.Resource, start.Unix(), end.Unix())
}
