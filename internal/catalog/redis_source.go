package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shackbot/internal/logger"
	"shackbot/internal/models"
)

// RedisSource shares the catalog between instances through Redis. A hit
// skips the next source; a miss fetches from it and writes the result back.
type RedisSource struct {
	client *redis.Client
	next   Source
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSource wraps next with a Redis-backed snapshot under key
func NewRedisSource(client *redis.Client, next Source, key string, ttl time.Duration, log *zap.Logger) *RedisSource {
	return &RedisSource{
		client: client,
		next:   next,
		key:    key,
		ttl:    ttl,
		logger: logger.Component(log, "catalog_redis"),
	}
}

// FetchAll implements Source
func (s *RedisSource) FetchAll(ctx context.Context) ([]models.MenuItem, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	switch {
	case err == nil:
		var items []models.MenuItem
		if jsonErr := json.Unmarshal([]byte(val), &items); jsonErr == nil && len(items) > 0 {
			s.logger.Debug("catalog served from redis", zap.Int("items", len(items)))
			return items, nil
		}
		s.logger.Warn("discarding unreadable catalog snapshot in redis", zap.String("key", s.key))
	case errors.Is(err, redis.Nil):
	default:
		// Redis being down must not take the menu with it
		s.logger.Warn("redis catalog read failed", zap.Error(err))
	}

	items, err := s.next.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}

	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		s.logger.Warn("redis catalog write failed", zap.Error(err))
	}
	return items, nil
}

// Purge drops the shared snapshot so the next fetch goes to the backing source
func (s *RedisSource) Purge(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
