package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/domain"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/metrics"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/port"
	"github.com/go-redis/redis/v8"
)

const (
	EmbeddingCacheKeyPattern = "embedding:%s:%s"
	DefaultEmbeddingCacheTTL = 24 * time.Hour
)

// EmbeddingCache memoizes another provider's Embed results in Redis.
// Redis failures are logged and fall through to the wrapped provider.
// Like any provider it refuses Embed until Init has succeeded, even when
// the vector is already cached.
type EmbeddingCache struct {
	next   port.EmbeddingProvider
	client *redis.Client
	ttl    time.Duration
	ready  atomic.Bool
}

// NewEmbeddingCache wraps next with a Redis-backed cache.
func NewEmbeddingCache(next port.EmbeddingProvider, client *redis.Client, ttl time.Duration) *EmbeddingCache {
	if ttl <= 0 {
		ttl = DefaultEmbeddingCacheTTL
	}
	return &EmbeddingCache{next: next, client: client, ttl: ttl}
}

// NewRedisClient parses url (redis://...) and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// ModelName returns the wrapped provider's model.
func (c *EmbeddingCache) ModelName() string {
	return c.next.ModelName()
}

// Init readies the wrapped provider.
func (c *EmbeddingCache) Init(ctx context.Context) error {
	if err := c.next.Init(ctx); err != nil {
		return err
	}
	c.ready.Store(true)
	return nil
}

// Embed returns the cached vector for text or asks the wrapped provider.
func (c *EmbeddingCache) Embed(ctx context.Context, text string) (domain.Embedding, error) {
	if !c.ready.Load() {
		return nil, port.ErrNotReady
	}

	key := Key(c.next.ModelName(), text)

	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var emb domain.Embedding
		if jsonErr := json.Unmarshal([]byte(raw), &emb); jsonErr == nil && len(emb) > 0 {
			metrics.EmbedCacheTotal.WithLabelValues("hit").Inc()
			return emb, nil
		}
		slog.Warn("discarding corrupt cached embedding", "key", key)
		metrics.EmbedCacheTotal.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		metrics.EmbedCacheTotal.WithLabelValues("miss").Inc()
	default:
		slog.Warn("embedding cache read failed", "key", key, "error", err)
		metrics.EmbedCacheTotal.WithLabelValues("error").Inc()
	}

	emb, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(emb)
	if err != nil {
		return emb, nil
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.Warn("embedding cache write failed", "key", key, "error", err)
	}
	return emb, nil
}

// Key returns the cache key for text embedded by model.
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf(EmbeddingCacheKeyPattern, model, hex.EncodeToString(sum[:]))
}
