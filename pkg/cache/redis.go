package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vinylscout/vinylscout/pkg/record"
)

// RedisStore is a Redis-backed server tier for deployments where the
// result cache should survive process restarts.
//
// The Redis key expiry is set to the stale horizon (FallbackTTL), NOT
// the freshness TTL: an entry past ServerTTL must stay readable as a
// degraded fallback until Redis drops it outright.
type RedisStore struct {
	redis     *redis.Client
	retention time.Duration
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis:     redisClient,
		retention: FallbackTTL,
	}
}

// redisKey builds the namespaced key for a style.
func redisKey(style string) string {
	return "vinylscout:records:" + style
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, style string) (*Entry, error) {
	data, err := s.redis.Get(ctx, redisKey(style)).Bytes()
	if err != nil {
		if err == redis.Nil {
			cacheMisses.WithLabelValues("redis").Inc()
			return nil, ErrCacheMiss
		}
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("unmarshal cache entry: %w", err)
	}

	cacheHits.WithLabelValues("redis", freshnessLabel(&entry)).Inc()
	return &entry, nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, style string, records []record.Record) error {
	entry := &Entry{
		Style:    style,
		CachedAt: time.Now(),
		Records:  records,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		cacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.redis.Set(ctx, redisKey(style), data, s.retention).Err(); err != nil {
		cacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
