// Package cache keeps upstream feed pages in Redis so discovery sessions
// opened by many users share one upstream call per page.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/chitram/companion/internal/infra/metrics"
	"github.com/chitram/companion/pkg/feed"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Store is a byte-oriented key/value store with expiry.
type Store interface {
	// Get reports whether key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore connects from a URL such as redis://:pass@host:6379/0 and
// pings once so a bad address fails at startup.
func NewRedisStore(ctx context.Context, redisURL, prefix string) (*RedisStore, error) {
	if prefix == "" {
		prefix = "chitram:page:"
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{rdb: rdb, prefix: prefix}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, s.prefix+key, value, ttl).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }

func (s *RedisStore) Close() error { return s.rdb.Close() }

// Pages is a read-through cache of feed pages. One Pages value is shared by
// every feed reading through it, so concurrent misses for the same page from
// different feeds share one call to the upstream.
type Pages[T any] struct {
	store Store
	ttl   time.Duration
	group singleflight.Group
}

func NewPages[T any](store Store, ttl time.Duration) *Pages[T] {
	return &Pages[T]{store: store, ttl: ttl}
}

// Fetch wraps fetch under namespace. Only successful pages are stored. A
// failing store is logged and bypassed.
func (c *Pages[T]) Fetch(namespace string, fetch feed.FetchFunc[T]) feed.FetchFunc[T] {
	return func(ctx context.Context, page int) (feed.Page[T], error) {
		key := namespace + ":" + strconv.Itoa(page)
		if p, ok := c.lookup(ctx, key); ok {
			return p, nil
		}
		metrics.PageCacheResults.WithLabelValues("miss").Inc()

		// The shared call outlives any single caller's cancellation.
		v, err, _ := c.group.Do(key, func() (interface{}, error) {
			shared := context.WithoutCancel(ctx)
			p, err := fetch(shared, page)
			if err != nil {
				return nil, err
			}
			c.save(shared, key, p)
			return p, nil
		})
		if err != nil {
			return feed.Page[T]{}, err
		}
		return v.(feed.Page[T]), nil
	}
}

func (c *Pages[T]) lookup(ctx context.Context, key string) (feed.Page[T], bool) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		metrics.PageCacheResults.WithLabelValues("error").Inc()
		slog.Warn("Page cache read failed", "key", key, "error", err)
		return feed.Page[T]{}, false
	}
	if !ok {
		return feed.Page[T]{}, false
	}
	var p feed.Page[T]
	if err := json.Unmarshal(raw, &p); err != nil {
		slog.Warn("Discarding undecodable cached page", "key", key)
		return feed.Page[T]{}, false
	}
	metrics.PageCacheResults.WithLabelValues("hit").Inc()
	return p, true
}

func (c *Pages[T]) save(ctx context.Context, key string, p feed.Page[T]) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		metrics.PageCacheResults.WithLabelValues("error").Inc()
		slog.Warn("Page cache write failed", "key", key, "error", err)
	}
}

// Cached wraps a single fetch with its own cache. Feeds that should share
// upstream calls go through one Pages value instead.
func Cached[T any](store Store, namespace string, ttl time.Duration, fetch feed.FetchFunc[T]) feed.FetchFunc[T] {
	return NewPages[T](store, ttl).Fetch(namespace, fetch)
}
