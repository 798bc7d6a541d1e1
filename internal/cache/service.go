package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/openveg/directory-service/internal/metrics"
)

// SetOptions controls TTL and tagging for a cache write.
type SetOptions struct {
	TTL  time.Duration
	Tags []string
}

// Stats is the in-process view of cache health.
type Stats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	HitRatio    float64 `json:"hit_ratio"`
	MemoryUsage int64   `json:"memory_usage"`
	CacheSize   int     `json:"cache_size"`
}

// Service orchestrates cache-aside reads and tag/pattern invalidation
// over a Store. Store failures are logged and swallowed: callers fall
// back to the authoritative store, a cache outage is never fatal.
type Service struct {
	store      Store
	index      *Index
	defaultTTL time.Duration
	opTimeout  time.Duration
	hits       atomic.Int64
	misses     atomic.Int64
	group      singleflight.Group
	log        zerolog.Logger
}

// NewService creates a cache service over store. defaultTTL applies
// when SetOptions.TTL is zero; opTimeout bounds every store call.
func NewService(store Store, defaultTTL, opTimeout time.Duration, log zerolog.Logger) *Service {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if opTimeout <= 0 {
		opTimeout = 2 * time.Second
	}
	return &Service{
		store:      store,
		index:      NewIndex(),
		defaultTTL: defaultTTL,
		opTimeout:  opTimeout,
		log:        log.With().Str("component", "cache").Logger(),
	}
}

// DefaultTTL returns the TTL applied when a caller passes none.
func (c *Service) DefaultTTL() time.Duration { return c.defaultTTL }

func (c *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opTimeout)
}

// GetRaw fetches the serialized payload for key. Any store error is a
// miss.
func (c *Service) GetRaw(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	payload, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache get failed, treating as miss")
		c.misses.Add(1)
		metrics.RecordCacheOperation("get", "error")
		return nil, false
	}
	if !ok {
		c.misses.Add(1)
		metrics.RecordCacheOperation("get", "miss")
		return nil, false
	}
	c.hits.Add(1)
	metrics.RecordCacheOperation("get", "hit")
	return payload, true
}

// SetRaw writes a serialized payload under key and records its tags.
// modelName is always added to the tag set.
func (c *Service) SetRaw(ctx context.Context, key string, payload []byte, modelName string, opts SetOptions) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.store.Set(ctx, key, payload, ttl); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache set failed, skipping")
		metrics.RecordCacheOperation("set", "error")
		return
	}
	c.index.AddTags(key, append([]string{modelName}, opts.Tags...)...)
	metrics.RecordCacheOperation("set", "success")
}

// Invalidate removes key from the store and the index. Invalidating an
// absent key is a no-op.
func (c *Service) Invalidate(ctx context.Context, key string) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.store.Del(ctx, key); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache delete failed")
		metrics.RecordCacheOperation("invalidate", "error")
	} else {
		metrics.RecordCacheOperation("invalidate", "success")
	}
	c.index.RemoveKey(key)
}

// InvalidateByTag removes every key recorded under tag, then clears the
// tag bucket. Synchronous and reliable: the index, not the store scan,
// is the source of keys.
func (c *Service) InvalidateByTag(ctx context.Context, tag string) {
	keys := c.index.KeysForTag(tag)
	for _, key := range keys {
		c.Invalidate(ctx, key)
	}
	c.index.DropTag(tag)
	if len(keys) > 0 {
		c.log.Debug().Str("tag", tag).Int("keys", len(keys)).Msg("invalidated tag")
	}
	metrics.RecordCacheOperation("invalidate_tag", "success")
}

// InvalidatePattern removes keys matching the glob. Best effort: it
// matches the in-process known-keys set and falls back to the store's
// own scan when available. Entries missed here still expire by TTL.
func (c *Service) InvalidatePattern(ctx context.Context, pattern string) {
	seen := make(map[string]struct{})
	for _, key := range c.index.KeysMatching(pattern) {
		seen[key] = struct{}{}
	}

	scanCtx, cancel := c.withTimeout(ctx)
	storeKeys, err := c.store.KeysMatching(scanCtx, pattern)
	cancel()
	if err != nil {
		c.log.Debug().Err(err).Str("pattern", pattern).Msg("store scan unavailable, using index only")
	} else {
		for _, key := range storeKeys {
			seen[key] = struct{}{}
		}
	}

	for key := range seen {
		c.Invalidate(ctx, key)
	}
	metrics.RecordCacheOperation("invalidate_pattern", "success")
}

// Stats returns rolling hit/miss counters plus a best-effort store
// snapshot. The counters never block on the store.
func (c *Service) Stats(ctx context.Context) Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	stats := Stats{Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		stats.HitRatio = float64(hits) / float64(total)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	if ss, err := c.store.ScanStats(ctx); err == nil {
		stats.MemoryUsage = ss.UsedMemory
		stats.CacheSize = ss.KeyCount
	} else {
		c.log.Warn().Err(err).Msg("store stats unavailable")
	}

	metrics.UpdateCacheGauges(stats.CacheSize, stats.HitRatio, stats.MemoryUsage)
	return stats
}

// ResetCounters zeroes the rolling hit/miss counters.
func (c *Service) ResetCounters() {
	c.hits.Store(0)
	c.misses.Store(0)
}

// HealthCheck does a synthetic set/get round trip against the store.
func (c *Service) HealthCheck(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	const key = "health:probe"
	if err := c.store.Set(ctx, key, []byte("ok"), 10*time.Second); err != nil {
		return fmt.Errorf("health set: %w", err)
	}
	if _, ok, err := c.store.Get(ctx, key); err != nil {
		return fmt.Errorf("health get: %w", err)
	} else if !ok {
		return fmt.Errorf("health get: probe key missing")
	}
	return nil
}

// Get fetches and deserializes the value cached under key. A corrupt
// payload counts as a miss and the entry is dropped.
func Get[T any](ctx context.Context, c *Service, key string) (T, bool) {
	var value T
	payload, ok := c.GetRaw(ctx, key)
	if !ok {
		return value, false
	}
	if err := json.Unmarshal(payload, &value); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("corrupt cache payload, dropping entry")
		c.Invalidate(ctx, key)
		var zero T
		return zero, false
	}
	return value, true
}

// Set serializes value and caches it under key, tagged with modelName
// plus opts.Tags. Serialization failure skips the cache write.
func Set[T any](ctx context.Context, c *Service, key string, value T, modelName string, opts SetOptions) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache marshal failed, skipping")
		return
	}
	c.SetRaw(ctx, key, payload, modelName, opts)
}

// GetOrLoad is the cache-aside read path: return the cached value, or
// load from the authoritative source and populate the cache. Concurrent
// misses for the same key are coalesced into a single load.
func GetOrLoad[T any](ctx context.Context, c *Service, key, modelName string, opts SetOptions, load func(context.Context) (T, error)) (T, error) {
	if value, ok := Get[T](ctx, c, key); ok {
		return value, nil
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		Set(ctx, c, key, value, modelName, opts)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}
