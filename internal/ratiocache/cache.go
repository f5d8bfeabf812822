package ratiocache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"lumator/internal/calendar"
	"lumator/internal/demand"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// KeyPrefix namespaces ratio entries in Redis.
const KeyPrefix = "lumator:ratios"

// Cache memoizes a RatioSource by (sample date, warehouse). Ratios of a past
// date do not change, so entries never expire in memory. Errors are not cached.
type Cache struct {
	source demand.RatioSource
	group  singleflight.Group

	mu      sync.Mutex
	entries map[string][]demand.GroupRatio

	redis    redis.Cmdable
	redisTTL time.Duration

	hits   int
	misses int
}

var _ demand.RatioSource = (*Cache)(nil)

// Option configures a Cache.
type Option func(*Cache)

// WithRedis adds a persistent layer shared across runs.
func WithRedis(client redis.Cmdable, ttl time.Duration) Option {
	return func(c *Cache) {
		c.redis = client
		c.redisTTL = ttl
	}
}

func New(source demand.RatioSource, opts ...Option) *Cache {
	c := &Cache{
		source:  source,
		entries: make(map[string][]demand.GroupRatio),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func cacheKey(sampleDate time.Time, warehouse string) string {
	return fmt.Sprintf("%s:%s", warehouse, calendar.Format(sampleDate))
}

// Ratios returns cached ratios or loads them once from the source.
func (c *Cache) Ratios(ctx context.Context, sampleDate time.Time, warehouse string) ([]demand.GroupRatio, error) {
	key := cacheKey(sampleDate, warehouse)

	c.mu.Lock()
	if r, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()
		log.Trace().Str("key", key).Msg("Ratio cache hit")
		return clone(r), nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if r, ok := c.fromRedis(ctx, key); ok {
			return r, nil
		}
		r, err := c.source.Ratios(ctx, sampleDate, warehouse)
		if err != nil {
			return nil, err
		}
		c.toRedis(ctx, key, r)
		return r, nil
	})
	if err != nil {
		return nil, err
	}

	ratios := v.([]demand.GroupRatio)
	c.mu.Lock()
	c.entries[key] = ratios
	c.misses++
	c.mu.Unlock()
	return clone(ratios), nil
}

// Stats returns the hit and miss counts of the in-memory layer.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *Cache) fromRedis(ctx context.Context, key string) ([]demand.GroupRatio, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, KeyPrefix+":"+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("Redis ratio lookup failed, querying warehouse")
		}
		return nil, false
	}
	var ratios []demand.GroupRatio
	if err := json.Unmarshal(data, &ratios); err != nil || len(ratios) == 0 {
		log.Warn().Err(err).Str("key", key).Msg("Ignoring unreadable cached ratios")
		return nil, false
	}
	log.Debug().Str("key", key).Msg("Ratios loaded from Redis")
	return ratios, true
}

func (c *Cache) toRedis(ctx context.Context, key string, ratios []demand.GroupRatio) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(ratios)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, KeyPrefix+":"+key, data, c.redisTTL).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to store ratios in Redis")
	}
}

func clone(r []demand.GroupRatio) []demand.GroupRatio {
	return append([]demand.GroupRatio(nil), r...)
}
