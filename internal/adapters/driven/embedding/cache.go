package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
	"github.com/custodia-labs/grabdocs/internal/logger"
)

// DefaultCacheTTL is how long a cached vector lives.
const DefaultCacheTTL = 24 * time.Hour

const cacheKeyPrefix = "grabdocs:emb:"

// Cache stores vectors by key. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32, ttl time.Duration) error
	Close() error
}

// RedisCache is a Cache on Redis with msgpack-encoded values.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to addr and checks the connection.
func NewRedisCache(ctx context.Context, addr string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis cache %s: %w", addr, err)
	}
	return &RedisCache{client: client}, nil
}

// Get returns the cached vector for key.
func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	vec, err := decodeVector(data)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// Set stores vec under key with ttl.
func (c *RedisCache) Set(ctx context.Context, key string, vec []float32, ttl time.Duration) error {
	data, err := encodeVector(vec)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func encodeVector(vec []float32) ([]byte, error) {
	data, err := msgpack.Marshal(vec)
	if err != nil {
		return nil, fmt.Errorf("encode vector: %w", err)
	}
	return data, nil
}

func decodeVector(data []byte) ([]float32, error) {
	var vec []float32
	if err := msgpack.Unmarshal(data, &vec); err != nil {
		return nil, fmt.Errorf("decode vector: %w", err)
	}
	return vec, nil
}

// Ensure CachedService implements the interface.
var _ driven.EmbeddingService = (*CachedService)(nil)

// CachedService wraps an EmbeddingService with a read-through vector cache.
// Cache failures are logged and never fail an embed.
type CachedService struct {
	inner driven.EmbeddingService
	cache Cache
	ttl   time.Duration
	log   logger.Logger
}

// NewCachedService decorates inner with cache. A non-positive ttl uses DefaultCacheTTL.
func NewCachedService(inner driven.EmbeddingService, cache Cache, ttl time.Duration) *CachedService {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedService{inner: inner, cache: cache, ttl: ttl, log: logger.With("embedding-cache")}
}

// CacheKey is the cache key for text under model.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + model + ":" + hex.EncodeToString(sum[:])
}

// Embed returns a cached vector or embeds and caches it.
func (s *CachedService) Embed(ctx context.Context, text string) ([]float32, error) {
	key := CacheKey(s.inner.ModelName(), text)

	vec, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("get failed: %v", err)
	}
	if ok && len(vec) == s.inner.Dimensions() {
		return vec, nil
	}

	vec, err = s.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, vec, s.ttl); err != nil {
		s.log.Warn("set failed: %v", err)
	}
	return vec, nil
}

// EmbedBatch embeds only the texts that miss the cache.
func (s *CachedService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		vec, ok, err := s.cache.Get(ctx, CacheKey(s.inner.ModelName(), text))
		if err != nil {
			s.log.Warn("get failed: %v", err)
		}
		if ok && len(vec) == s.inner.Dimensions() {
			out[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := s.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, Permanent("embedding batch returned %d vectors for %d inputs", len(vecs), len(missing))
	}
	for j, vec := range vecs {
		out[missingIdx[j]] = vec
		if err := s.cache.Set(ctx, CacheKey(s.inner.ModelName(), missing[j]), vec, s.ttl); err != nil {
			s.log.Warn("set failed: %v", err)
		}
	}
	return out, nil
}

// Dimensions returns the wrapped service's vector size.
func (s *CachedService) Dimensions() int { return s.inner.Dimensions() }

// ModelName returns the wrapped service's model.
func (s *CachedService) ModelName() string { return s.inner.ModelName() }

// Ping checks the wrapped service.
func (s *CachedService) Ping(ctx context.Context) error { return s.inner.Ping(ctx) }

// Close closes the cache and the wrapped service.
func (s *CachedService) Close() error {
	cacheErr := s.cache.Close()
	if err := s.inner.Close(); err != nil {
		return err
	}
	return cacheErr
}
