package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache abstracts the Redis operations used by the use case to make
// testing easier.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

// RedisCache is a concrete implementation backed by go-redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache constructs a new Redis-backed cache adapter.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Set writes a value to Redis.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a cached value from Redis.
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

// PredictionCache layers the prediction-specific concerns over a raw Cache:
// content-hash keys, JSON serialization of responses, and the entry TTL.
type PredictionCache struct {
	cache Cache
	ttl   time.Duration
}

// NewPredictionCache wraps a raw cache with the prediction key scheme and
// the given entry lifetime.
func NewPredictionCache(cache Cache, ttl time.Duration) *PredictionCache {
	return &PredictionCache{cache: cache, ttl: ttl}
}

// Key derives the cache key for an upload. Identical image bytes always map
// to the same key.
func (p *PredictionCache) Key(imageBytes []byte) string {
	hash := sha1.Sum(imageBytes)
	return fmt.Sprintf("prediction:%s", hex.EncodeToString(hash[:]))
}

// Lookup returns the cached response for key, or (nil, nil) on a miss.
func (p *PredictionCache) Lookup(ctx context.Context, key string) (*Response, error) {
	cached, err := p.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal([]byte(cached), &resp); err != nil {
		return nil, fmt.Errorf("decode cached prediction: %w", err)
	}
	return &resp, nil
}

// Store serializes a response under key with the configured TTL.
func (p *PredictionCache) Store(ctx context.Context, key string, resp *Response) error {
	serialized, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("serialize prediction for cache: %w", err)
	}
	return p.cache.Set(ctx, key, string(serialized), p.ttl)
}
