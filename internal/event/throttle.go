package event

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Throttle gates admission to the upstream store so parallel collectors do
// not exhaust its search contexts. Acquire blocks until a slot is free or the
// context is done; every successful Acquire must be paired with a Release.
type Throttle interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context)
}

// NoopThrottle admits everything. Used with in-process sources.
type NoopThrottle struct{}

func (NoopThrottle) Acquire(ctx context.Context) error { return nil }
func (NoopThrottle) Release(ctx context.Context)       {}

// RedisThrottle counts open searches in a shared redis key so the limit holds
// across audit processes, retrying on a fixed interval while the store is
// saturated.
type RedisThrottle struct {
	client *redis.Client
	key    string
	limit  int64
	retry  time.Duration
}

func NewRedisThrottle(client *redis.Client, key string, limit int64, retry time.Duration) *RedisThrottle {
	if key == "" {
		key = "ruleaudit:open_searches"
	}
	if limit <= 0 {
		limit = 800
	}
	if retry <= 0 {
		retry = 10 * time.Second
	}
	return &RedisThrottle{client: client, key: key, limit: limit, retry: retry}
}

func (t *RedisThrottle) Acquire(ctx context.Context) error {
	for {
		n, err := t.client.Incr(ctx, t.key).Result()
		if err != nil {
			return err
		}
		if n <= t.limit {
			return nil
		}
		t.client.Decr(ctx, t.key)
		log.Info().Int64("open_searches", n-1).Int64("limit", t.limit).Msg("event store saturated, waiting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.retry):
		}
	}
}

func (t *RedisThrottle) Release(ctx context.Context) {
	if err := t.client.Decr(ctx, t.key).Err(); err != nil {
		log.Error().Err(err).Msg("release search slot")
	}
}
