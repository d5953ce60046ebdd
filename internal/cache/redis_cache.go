package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m-atharkhan/FrClass/internal/config"
	"github.com/m-atharkhan/FrClass/internal/domain"
)

// RedisResultsCache stores poll aggregates in redis under a key prefix.
type RedisResultsCache struct {
	client *redis.Client
	prefix string
}

// NewRedisResultsCache connects to redis and verifies the connection.
func NewRedisResultsCache(cfg config.RedisConfig) (*RedisResultsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisResultsCache{
		client: client,
		prefix: cfg.CachePrefix,
	}, nil
}

func (c *RedisResultsCache) key(pollID string) string {
	return fmt.Sprintf("%s:%s", c.prefix, pollID)
}

func (c *RedisResultsCache) Get(ctx context.Context, pollID string) (*domain.PollResults, error) {
	data, err := c.client.Get(ctx, c.key(pollID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var results domain.PollResults
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &results, nil
}

func (c *RedisResultsCache) Set(ctx context.Context, pollID string, results *domain.PollResults, ttl time.Duration) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := c.client.Set(ctx, c.key(pollID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	return nil
}

func (c *RedisResultsCache) Delete(ctx context.Context, pollID string) error {
	return c.client.Del(ctx, c.key(pollID)).Err()
}

func (c *RedisResultsCache) Close() error {
	return c.client.Close()
}
