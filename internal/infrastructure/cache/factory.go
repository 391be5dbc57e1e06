package cache

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"claimflow/internal/ports"
)

type Settings struct {
	Driver        string
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// New returns the snapshot cache for settings.Driver. "none" yields a nil
// cache, which callers treat as always missing. The redis cache must be
// closed by the caller.
func New(settings Settings, db *gorm.DB) (ports.Cache, error) {
	switch strings.ToLower(strings.TrimSpace(settings.Driver)) {
	case "", "memory":
		return NewMemoryCache(settings.TTL), nil
	case "sqlite", "db":
		if db == nil {
			return nil, fmt.Errorf("cache driver %q needs a database", settings.Driver)
		}
		return NewSQLiteCache(db, settings.TTL), nil
	case "redis":
		addr := strings.TrimSpace(settings.RedisAddr)
		if addr == "" {
			return nil, errors.New("cache driver redis needs cache.redis_addr")
		}
		return NewRedisCache(&redis.Options{
			Addr:     addr,
			Password: settings.RedisPassword,
			DB:       settings.RedisDB,
		}, settings.RedisPrefix, settings.TTL), nil
	case "none", "off":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", settings.Driver)
	}
}
