package embedding

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"rostersync/internal/identity/metrics"
	"rostersync/internal/similarity"
)

const (
	defaultCacheTTL      = 24 * time.Hour
	defaultFlightTimeout = 30 * time.Second
)

// KV is the subset of the Redis client the cache needs.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Cached shares embeddings across ingestions through Redis and collapses
// concurrent requests for the same name into one provider call. Cache
// failures degrade to calling the provider directly.
type Cached struct {
	next    Provider
	kv      KV
	ttl           time.Duration
	flightTimeout time.Duration
	group         singleflight.Group
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type CacheOption func(*Cached)

func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *Cached) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithFlightTimeout bounds a shared provider call, which no caller's
// deadline applies to.
func WithFlightTimeout(d time.Duration) CacheOption {
	return func(c *Cached) {
		if d > 0 {
			c.flightTimeout = d
		}
	}
}

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *Cached) {
		c.logger = logger
	}
}

func WithCacheMetrics(m *metrics.Metrics) CacheOption {
	return func(c *Cached) {
		c.metrics = m
	}
}

// NewCached wraps next with a Redis cache.
func NewCached(next Provider, kv KV, opts ...CacheOption) *Cached {
	c := &Cached{next: next, kv: kv, ttl: defaultCacheTTL, flightTimeout: defaultFlightTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cached) Name() string {
	return c.next.Name()
}

// Embed serves text from the cache or the wrapped provider. The provider
// always sees the normalized name, whichever spelling arrived first. Concurrent
// callers for the same name share one provider call, which runs detached
// from any single caller so one caller giving up does not fail the rest.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	text = similarity.NormalizeName(text)
	key := c.key(text)

	if vec, ok := c.lookup(ctx, key); ok {
		c.incrementHit()
		return vec, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.flightTimeout)
		defer cancel()
		// A flight that finished between our lookup and DoChan already filled the key.
		if vec, ok := c.lookup(fctx, key); ok {
			return vec, nil
		}
		c.incrementMiss()
		vec, err := c.next.Embed(fctx, text)
		if err != nil {
			return nil, err
		}
		if err := c.kv.Set(fctx, key, encodeVector(vec), c.ttl).Err(); err != nil {
			c.logWarn(fctx, "embedding cache write failed", "error", err)
		}
		return vec, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]float32), nil
	}
}

func (c *Cached) lookup(ctx context.Context, key string) ([]float32, bool) {
	raw, err := c.kv.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logWarn(ctx, "embedding cache read failed", "error", err)
		}
		return nil, false
	}
	vec, err := decodeVector(raw)
	if err != nil {
		c.logWarn(ctx, "embedding cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return vec, true
}

func (c *Cached) key(text string) string {
	return fmt.Sprintf("rostersync:embedding:%s:%s", c.next.Name(), similarity.NormalizeName(text))
}

func (c *Cached) incrementHit() {
	if c.metrics != nil {
		c.metrics.IncrementCacheHit()
	}
}

func (c *Cached) incrementMiss() {
	if c.metrics != nil {
		c.metrics.IncrementCacheMiss()
	}
}

func (c *Cached) logWarn(ctx context.Context, msg string, args ...any) {
	if c.logger != nil {
		c.logger.WarnContext(ctx, msg, args...)
	}
}

// encodeVector packs a vector as little-endian float32s.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(raw []byte) ([]float32, error) {
	if len(raw) == 0 || len(raw)%4 != 0 {
		return nil, fmt.Errorf("invalid vector encoding of %d bytes", len(raw))
	}
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return vec, nil
}
