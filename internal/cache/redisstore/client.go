// Package redisstore keeps tower locations in Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"

	"github.com/mohammed-shakir/towercache/internal/cache"
	"github.com/mohammed-shakir/towercache/internal/model"
	"github.com/mohammed-shakir/towercache/internal/observability"
)

type settings struct {
	ro     *redis.Options
	prefix string
	ttl    time.Duration
}

type Option func(*settings)

func WithPoolSize(n int) Option {
	return func(s *settings) { s.ro.PoolSize = n }
}

func WithMinIdleConns(n int) Option {
	return func(s *settings) { s.ro.MinIdleConns = n }
}

func WithDialTimeout(d time.Duration) Option {
	return func(s *settings) { s.ro.DialTimeout = d }
}

func WithReadTimeout(d time.Duration) Option {
	return func(s *settings) { s.ro.ReadTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(s *settings) { s.ro.WriteTimeout = d }
}

func WithDB(db int) Option {
	return func(s *settings) { s.ro.DB = db }
}

// WithKeyPrefix namespaces every tower key, e.g. "towers:".
func WithKeyPrefix(p string) Option {
	return func(s *settings) { s.prefix = p }
}

// WithTTL expires stored entries. Zero keeps them until the server drops them.
func WithTTL(d time.Duration) Option {
	return func(s *settings) { s.ttl = d }
}

type Client struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

var _ cache.Store = (*Client)(nil)

func New(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	s := &settings{ro: &redis.Options{
		Addr:         addr,
		PoolSize:     16,
		MinIdleConns: 2,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	}}
	for _, f := range opts {
		f(s)
	}

	rdb := redis.NewClient(s.ro)

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	observability.ObserveCacheOp("ping", err, time.Since(start).Seconds())
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{rdb: rdb, prefix: s.prefix, ttl: s.ttl}, nil
}

func (c *Client) key(k string) string { return c.prefix + k }

func (c *Client) Store(ctx context.Context, key string, loc model.Location) error {
	start := time.Now()
	val, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("encode location for %q: %w", key, err)
	}
	err = c.rdb.Set(ctx, c.key(key), val, c.ttl).Err()
	observability.ObserveCacheOp("store", err, time.Since(start).Seconds())
	if err != nil {
		if isOOM(err) {
			return fmt.Errorf("redis SET %q: %w: %w", key, cache.ErrFull, err)
		}
		return fmt.Errorf("redis SET %q: %w", key, err)
	}
	return nil
}

func (c *Client) Fetch(ctx context.Context, key string) (model.Location, bool, error) {
	start := time.Now()
	raw, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveCacheOp("fetch", nil, time.Since(start).Seconds())
		observability.AddCacheMisses(1)
		return model.Location{}, false, nil
	}
	observability.ObserveCacheOp("fetch", err, time.Since(start).Seconds())
	if err != nil {
		return model.Location{}, false, fmt.Errorf("redis GET %q: %w", key, err)
	}
	var loc model.Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		return model.Location{}, false, fmt.Errorf("decode location for %q: %w", key, err)
	}
	observability.AddCacheHits(1)
	return loc, true, nil
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	n, err := c.rdb.Exists(ctx, c.key(key)).Result()
	observability.ObserveCacheOp("exists", err, time.Since(start).Seconds())
	if err != nil {
		return false, fmt.Errorf("redis EXISTS %q: %w", key, err)
	}
	return n > 0, nil
}

func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}

// Redis answers writes with an OOM error once maxmemory is reached under noeviction.
func isOOM(err error) bool {
	var rerr redis.Error
	if errors.As(err, &rerr) {
		return strings.HasPrefix(rerr.Error(), "OOM")
	}
	return false
}
