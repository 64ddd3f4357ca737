package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Djamsy/veille-uptade-sub000/pkg/models"
)

// RedisCache holds hot copies of records keyed by id and by capture date.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis.
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func recordKey(id string) string {
	return "veille:record:" + id
}

func dateKey(date string) string {
	return "veille:records:" + date
}

// PutRecord caches one record under its id key.
func (c *RedisCache) PutRecord(ctx context.Context, rec *models.TranscriptionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return c.client.Set(ctx, recordKey(rec.ID), data, c.ttl).Err()
}

// GetRecord fetches one record from cache. redis.Nil means a miss.
func (c *RedisCache) GetRecord(ctx context.Context, id string) (*models.TranscriptionRecord, error) {
	data, err := c.client.Get(ctx, recordKey(id)).Bytes()
	if err != nil {
		return nil, err
	}
	var rec models.TranscriptionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal cached record: %w", err)
	}
	return &rec, nil
}

// PutDate caches a full day's record list.
func (c *RedisCache) PutDate(ctx context.Context, date string, recs []*models.TranscriptionRecord) error {
	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("marshal day records: %w", err)
	}
	return c.client.Set(ctx, dateKey(date), data, c.ttl).Err()
}

// GetDate fetches a cached day list. redis.Nil means a miss.
func (c *RedisCache) GetDate(ctx context.Context, date string) ([]*models.TranscriptionRecord, error) {
	data, err := c.client.Get(ctx, dateKey(date)).Bytes()
	if err != nil {
		return nil, err
	}
	var recs []*models.TranscriptionRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("unmarshal cached day: %w", err)
	}
	return recs, nil
}

// InvalidateDate drops a day's cached list, forcing the next read through
// to the database. Used after appends so a day list never serves stale.
func (c *RedisCache) InvalidateDate(ctx context.Context, date string) error {
	return c.client.Del(ctx, dateKey(date)).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
