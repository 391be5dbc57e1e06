package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"claimflow/internal/errs"
	"claimflow/internal/ports"
)

// RedisCache shares snapshots between API replicas. Expiry is enforced by
// redis itself, so no purge loop is needed.
type RedisCache struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
}

var _ ports.Cache = (*RedisCache)(nil)

func NewRedisCache(opts *redis.Options, prefix string, defaultTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(opts),
		prefix:     prefix,
		defaultTTL: defaultTTL,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	if err := checkKey(ctx, key); err != nil {
		return "", false, err
	}

	value, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errs.Wrap(err, "redis get")
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := checkKey(ctx, key); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return errs.Wrap(err, "redis set")
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := checkKey(ctx, key); err != nil {
		return err
	}
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return errs.Wrap(err, "redis del")
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) key(key string) string {
	return c.prefix + strings.TrimSpace(key)
}
