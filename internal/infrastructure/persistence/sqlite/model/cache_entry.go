package model

type CacheEntry struct {
	Key       string `gorm:"column:key;type:text;primaryKey"`
	Value     string `gorm:"column:value;type:text;not null"`
	ExpiresAt int64  `gorm:"column:expires_at;not null;index"`
	UpdatedAt string `gorm:"column:updated_at;type:text;not null"`
}

func (CacheEntry) TableName() string {
	return "cache_entries"
}
