// Package cache provides a Redis-backed facet cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/telemetry"
)

// facetKey is bumped whenever the FacetSet encoding changes.
const facetKey = "facets:v1"

// RedisFacetCache stores the facet set as JSON under a single key.
type RedisFacetCache struct {
	rdb    *redis.Client
	key    string
	tracer trace.Tracer
}

// NewRedisFacetCache connects to Redis and verifies the connection.
func NewRedisFacetCache(ctx context.Context, cfg config.CacheConfig) (*RedisFacetCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return newRedisFacetCache(rdb, cfg.KeyPrefix), nil
}

func newRedisFacetCache(rdb *redis.Client, prefix string) *RedisFacetCache {
	return &RedisFacetCache{rdb: rdb, key: prefix + facetKey, tracer: telemetry.Tracer()}
}

// Key returns the Redis key holding the facet set.
func (c *RedisFacetCache) Key() string {
	return c.key
}

// Get returns the cached facet set. A missing key is a miss, not an error.
func (c *RedisFacetCache) Get(ctx context.Context) (*models.FacetSet, bool, error) {
	ctx, span := c.tracer.Start(ctx, "cache.Get", trace.WithAttributes(attribute.String("cache.key", c.key)))
	defer span.End()

	data, err := c.rdb.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("get %s: %w", c.key, err)
	}

	fs, err := decodeFacets(data)
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}
	span.SetAttributes(attribute.Bool("cache.hit", true))
	return fs, true, nil
}

// Set stores facets for ttl. A non-positive ttl stores without expiry.
func (c *RedisFacetCache) Set(ctx context.Context, facets *models.FacetSet, ttl time.Duration) error {
	ctx, span := c.tracer.Start(ctx, "cache.Set", trace.WithAttributes(
		attribute.String("cache.key", c.key),
		attribute.Int64("cache.ttl_ms", ttl.Milliseconds()),
	))
	defer span.End()

	data, err := json.Marshal(facets)
	if err != nil {
		return fmt.Errorf("failed to marshal facets: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.rdb.Set(ctx, c.key, data, ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("set %s: %w", c.key, err)
	}
	return nil
}

// Invalidate drops the cached facet set, typically after a catalog import.
func (c *RedisFacetCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("del %s: %w", c.key, err)
	}
	return nil
}

func (c *RedisFacetCache) Close() error {
	return c.rdb.Close()
}

// decodeFacets parses a cached entry, replacing absent lists with empty ones.
func decodeFacets(data []byte) (*models.FacetSet, error) {
	var fs models.FacetSet
	if err := json.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("decode cached facets: %w", err)
	}
	for _, l := range []*[]models.FacetBucket{&fs.Industries, &fs.Regions, &fs.Categories, &fs.CompanySizes} {
		if *l == nil {
			*l = []models.FacetBucket{}
		}
	}
	return &fs, nil
}
