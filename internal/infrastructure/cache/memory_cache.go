package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"claimflow/internal/errs"
	"claimflow/internal/ports"
)

// MemoryCache keeps snapshots in process memory with per-entry expiry.
type MemoryCache struct {
	store      *gocache.Cache
	defaultTTL time.Duration
}

var _ ports.Cache = (*MemoryCache)(nil)

func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	cleanup := defaultTTL * 2
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &MemoryCache{
		store:      gocache.New(defaultTTL, cleanup),
		defaultTTL: defaultTTL,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	if err := checkKey(ctx, key); err != nil {
		return "", false, err
	}

	raw, found := c.store.Get(strings.TrimSpace(key))
	if !found {
		return "", false, nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", false, nil
	}
	return value, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := checkKey(ctx, key); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if ttl <= 0 {
		return nil
	}

	c.store.Set(strings.TrimSpace(key), value, ttl)
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := checkKey(ctx, key); err != nil {
		return err
	}

	c.store.Delete(strings.TrimSpace(key))
	return nil
}

func checkKey(ctx context.Context, key string) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("key is required")
	}
	return nil
}
