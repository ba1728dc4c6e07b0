// Package cache provides an optional Redis-backed cache for computed
// embeddings. The embedder is deterministic for identical bytes, so caching
// by content hash is transparent to the matching decision.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Store abstracts the Redis operations used by the cache to make testing easier.
type Store interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

// RedisStore is a concrete implementation backed by go-redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a new Redis-backed store adapter.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Set writes a value to Redis.
func (s *RedisStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a cached value from Redis.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

// IsMiss reports whether an error from Get means the key was absent.
func IsMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Embedder mirrors the matcher's embedder contract so the cache can wrap any
// implementation without importing it.
type Embedder interface {
	Embed(ctx context.Context, imageData []byte) ([]float32, error)
}

const defaultTTL = time.Hour

// CachedEmbedder decorates an Embedder with a content-hash keyed cache.
// Cache failures are logged and treated as misses; they never fail a request.
type CachedEmbedder struct {
	next   Embedder
	store  Store
	logger *zap.Logger
	ttl    time.Duration
}

// NewCachedEmbedder wraps next with the given cache store.
func NewCachedEmbedder(next Embedder, store Store, logger *zap.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		next:   next,
		store:  store,
		logger: logger.Named("embedding_cache"),
		ttl:    defaultTTL,
	}
}

func cacheKey(imageData []byte) string {
	sum := sha256.Sum256(imageData)
	return "embedding:" + hex.EncodeToString(sum[:])
}

// Embed returns the cached vector for identical image bytes, computing and
// storing it on a miss.
func (c *CachedEmbedder) Embed(ctx context.Context, imageData []byte) ([]float32, error) {
	key := cacheKey(imageData)

	if cached, err := c.store.Get(ctx, key); err == nil {
		var vec []float32
		if err := json.Unmarshal([]byte(cached), &vec); err == nil && len(vec) > 0 {
			return vec, nil
		}
		c.logger.Warn("discarding undecodable cache entry", zap.String("key", key))
	} else if !IsMiss(err) {
		c.logger.Warn("cache read failed", zap.Error(err))
	}

	vec, err := c.next.Embed(ctx, imageData)
	if err != nil {
		return nil, err
	}

	serialized, err := json.Marshal(vec)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize embedding: %w", err)
	}
	if err := c.store.Set(ctx, key, string(serialized), c.ttl); err != nil {
		c.logger.Warn("cache write failed", zap.Error(err))
	}

	return vec, nil
}
