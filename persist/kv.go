package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"atelier_back/cache"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store is the durable key/value store backing the gallery collection and the
// avatar settings. Load returns (nil, nil) when the key has never been written.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}

// OpenFromEnv picks the persistence backend: Redis when REDIS_ADDR is
// configured and reachable, otherwise the relational KV table.
func OpenFromEnv() (Store, error) {
	if cache.Enabled() {
		client, err := cache.GetRedisClient()
		if err != nil {
			return nil, err
		}
		return &redisStore{client: client}, nil
	}

	db, err := openDatabaseFromEnv()
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("persist: migrate kv table: %w", err)
	}
	return &databaseStore{db: db}, nil
}

// Record is one persisted key/value row.
type Record struct {
	Key       string         `gorm:"primaryKey;size:128" json:"key"`
	Value     datatypes.JSON `gorm:"type:json" json:"value"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName pins the KV table name.
func (Record) TableName() string {
	return "studio_kv"
}

type databaseStore struct {
	db *gorm.DB
}

func (s *databaseStore) Load(ctx context.Context, key string) ([]byte, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var record Record
	err := s.db.WithContext(ctx).First(&record, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("persist: load %q: %w", key, err)
	}
	return []byte(record.Value), nil
}

func (s *databaseStore) Save(ctx context.Context, key string, value []byte) error {
	if s == nil || s.db == nil {
		return nil
	}
	record := Record{Key: key, Value: datatypes.JSON(value), UpdatedAt: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		return fmt.Errorf("persist: save %q: %w", key, err)
	}
	return nil
}

type redisStore struct {
	client *redis.Client
}

func (s *redisStore) Load(ctx context.Context, key string) ([]byte, error) {
	if s == nil || s.client == nil {
		return nil, nil
	}
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("persist: load %q: %w", key, err)
	}
	return data, nil
}

func (s *redisStore) Save(ctx context.Context, key string, value []byte) error {
	if s == nil || s.client == nil {
		return nil
	}
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("persist: save %q: %w", key, err)
	}
	return nil
}
