// Package memstore is a process-local tower location store.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/towercache/internal/cache"
	"github.com/mohammed-shakir/towercache/internal/model"
	"github.com/mohammed-shakir/towercache/internal/observability"
)

const defaultShards = 16

type Option func(*Store)

// WithCapacity bounds the number of distinct keys. Zero means unbounded.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = int64(n)
		}
	}
}

// WithShards sets the shard count, rounded up to a power of two.
func WithShards(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.nshards = nextPow2(n)
		}
	}
}

type shard struct {
	mu sync.RWMutex
	m  map[string]model.Location
}

type Store struct {
	shards   []*shard
	nshards  int
	capacity int64
	size     atomic.Int64
}

var _ cache.Store = (*Store)(nil)

func New(opts ...Option) *Store {
	s := &Store{nshards: defaultShards}
	for _, f := range opts {
		f(s)
	}
	s.shards = make([]*shard, s.nshards)
	for i := range s.shards {
		s.shards[i] = &shard{m: make(map[string]model.Location)}
	}
	return s
}

func (s *Store) shardFor(key string) *shard {
	return s.shards[xxhash.Sum64String(key)&uint64(s.nshards-1)]
}

func (s *Store) Store(ctx context.Context, key string, loc model.Location) error {
	start := time.Now()
	err := s.store(ctx, key, loc)
	observability.ObserveCacheOp("store", err, time.Since(start).Seconds())
	return err
}

func (s *Store) store(ctx context.Context, key string, loc model.Location) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memstore store %q: %w", key, err)
	}
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.m[key]; !ok && !s.reserve() {
		return fmt.Errorf("memstore store %q: %w (capacity %d)", key, cache.ErrFull, s.capacity)
	}
	sh.m[key] = loc
	return nil
}

// reserve claims a slot for a new key; shards share one size counter.
func (s *Store) reserve() bool {
	if s.capacity == 0 {
		s.size.Add(1)
		observability.IncCacheEntries()
		return true
	}
	for {
		n := s.size.Load()
		if n >= s.capacity {
			return false
		}
		if s.size.CompareAndSwap(n, n+1) {
			observability.IncCacheEntries()
			return true
		}
	}
}

func (s *Store) Fetch(ctx context.Context, key string) (model.Location, bool, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		observability.ObserveCacheOp("fetch", err, time.Since(start).Seconds())
		return model.Location{}, false, fmt.Errorf("memstore fetch %q: %w", key, err)
	}
	sh := s.shardFor(key)
	sh.mu.RLock()
	loc, ok := sh.m[key]
	sh.mu.RUnlock()
	observability.ObserveCacheOp("fetch", nil, time.Since(start).Seconds())
	if ok {
		observability.AddCacheHits(1)
	} else {
		observability.AddCacheMisses(1)
	}
	return loc, ok, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		observability.ObserveCacheOp("exists", err, time.Since(start).Seconds())
		return false, fmt.Errorf("memstore exists %q: %w", key, err)
	}
	sh := s.shardFor(key)
	sh.mu.RLock()
	_, ok := sh.m[key]
	sh.mu.RUnlock()
	observability.ObserveCacheOp("exists", nil, time.Since(start).Seconds())
	return ok, nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	return int(s.size.Load())
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
