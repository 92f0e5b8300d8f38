package watchlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trogers1052/dilution-tracker/internal/models"
)

// DefaultKeyPrefix namespaces cached results in Redis
const DefaultKeyPrefix = "dilution-tracker:ticker:"

// RedisCache is a Cache backed by Redis. Results are stored as JSON, one key
// per ticker, optionally expiring after ttl.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a RedisCache. A zero ttl keeps entries until overwritten.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: DefaultKeyPrefix,
		ttl:    ttl,
	}
}

// Ping verifies the Redis connection
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Get returns the cached result for ticker, or nil when there is none
func (c *RedisCache) Get(ctx context.Context, ticker string) (*models.EnrichedTicker, error) {
	data, err := c.client.Get(ctx, c.key(ticker)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached result: %w", err)
	}

	var res models.EnrichedTicker
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to decode cached result: %w", err)
	}
	return &res, nil
}

// Set stores result under its ticker
func (c *RedisCache) Set(ctx context.Context, result models.EnrichedTicker) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := c.client.Set(ctx, c.key(result.Ticker), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}
	return nil
}

// Delete drops the cached result for ticker
func (c *RedisCache) Delete(ctx context.Context, ticker string) error {
	if err := c.client.Del(ctx, c.key(ticker)).Err(); err != nil {
		return fmt.Errorf("failed to delete cached result: %w", err)
	}
	return nil
}

// All returns every cached result ordered by ticker
func (c *RedisCache) All(ctx context.Context) ([]models.EnrichedTicker, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan cached results: %w", err)
	}
	if len(keys) == 0 {
		return []models.EnrichedTicker{}, nil
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load cached results: %w", err)
	}

	out := make([]models.EnrichedTicker, 0, len(values))
	for _, v := range values {
		// expired between SCAN and MGET
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var res models.EnrichedTicker
		if err := json.Unmarshal([]byte(raw), &res); err != nil {
			return nil, fmt.Errorf("failed to decode cached result: %w", err)
		}
		out = append(out, res)
	}

	sortByTicker(out)
	return out, nil
}

func (c *RedisCache) key(ticker string) string {
	return c.prefix + strings.ToUpper(ticker)
}
