package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"claimflow/internal/errs"
	"claimflow/internal/infrastructure/persistence/sqlite/model"
	"claimflow/internal/ports"
)

// SQLiteCache shares snapshots between processes using the same database file.
type SQLiteCache struct {
	db         *gorm.DB
	defaultTTL time.Duration
	now        func() time.Time
}

var _ ports.Cache = (*SQLiteCache)(nil)

func NewSQLiteCache(db *gorm.DB, defaultTTL time.Duration) *SQLiteCache {
	return &SQLiteCache{
		db:         db,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

func (c *SQLiteCache) Get(ctx context.Context, key string) (string, bool, error) {
	if ctx == nil {
		return "", false, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", false, errs.Wrap(err, "check context")
	}

	trimmedKey := strings.TrimSpace(key)
	if trimmedKey == "" {
		return "", false, errors.New("key is required")
	}

	var row model.CacheEntry
	if err := c.db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", trimmedKey, c.now().UnixNano()).
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, errs.Wrap(err, "query cache by key")
	}

	return row.Value, true, nil
}

func (c *SQLiteCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	trimmedKey := strings.TrimSpace(key)
	if trimmedKey == "" {
		return errors.New("key is required")
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if ttl <= 0 {
		return nil
	}

	now := c.now()
	row := model.CacheEntry{
		Key:       trimmedKey,
		Value:     value,
		ExpiresAt: now.Add(ttl).UnixNano(),
		UpdatedAt: now.UTC().Format(time.RFC3339Nano),
	}

	if err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      row.Value,
			"expires_at": row.ExpiresAt,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert cache key")
	}

	return nil
}

func (c *SQLiteCache) Delete(ctx context.Context, key string) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	trimmedKey := strings.TrimSpace(key)
	if trimmedKey == "" {
		return errors.New("key is required")
	}

	if err := c.db.WithContext(ctx).Where("key = ?", trimmedKey).Delete(&model.CacheEntry{}).Error; err != nil {
		return errs.Wrap(err, "delete cache key")
	}
	return nil
}

// Purge removes expired rows. Get already ignores them; this only reclaims space.
func (c *SQLiteCache) Purge(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}

	result := c.db.WithContext(ctx).Where("expires_at <= ?", c.now().UnixNano()).Delete(&model.CacheEntry{})
	if result.Error != nil {
		return 0, errs.Wrap(result.Error, "purge expired cache keys")
	}
	return result.RowsAffected, nil
}
