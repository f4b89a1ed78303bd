// Package drivers builds the configured cache store by name.
package drivers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mohammed-shakir/towercache/internal/cache"
	"github.com/mohammed-shakir/towercache/internal/cache/lrucache"
	"github.com/mohammed-shakir/towercache/internal/cache/memstore"
	"github.com/mohammed-shakir/towercache/internal/cache/redisstore"
	"github.com/mohammed-shakir/towercache/internal/config"
)

// Factory returns a store and the function that releases it.
type Factory func(ctx context.Context, cfg config.Config) (cache.Store, func(), error)

var reg = map[string]Factory{}

func Register(name string, f Factory) {
	reg[name] = f
}

func init() {
	Register("memory", newMemory)
	Register("redis", newRedis)
}

func Names() []string {
	out := make([]string, 0, len(reg))
	for n := range reg {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Normalize maps a driver name to its registry key.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "memory"
	}
	return name
}

// New builds the named store and, when cfg.LookupMemoSize is set, puts an
// LRU lookup memo in front of it. The memo never expires entries, so it is
// left out when Redis keys carry a TTL.
func New(ctx context.Context, name string, cfg config.Config, logger *slog.Logger) (cache.Store, func(), error) {
	name = Normalize(name)
	f, ok := reg[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown store driver %q (have %v)", name, Names())
	}
	store, closeFn, err := f(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("%s store: %w", name, err)
	}
	if cfg.LookupMemoSize <= 0 {
		return store, closeFn, nil
	}
	if name == "redis" && cfg.Redis.TTL > 0 {
		if logger != nil {
			logger.WarnContext(ctx, "lookup memo disabled, redis keys expire",
				"ttl", cfg.Redis.TTL, "memo_size", cfg.LookupMemoSize)
		}
		return store, closeFn, nil
	}
	memo, err := lrucache.New(store, cfg.LookupMemoSize)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	if logger != nil {
		logger.DebugContext(ctx, "lookup memo enabled", "store", name, "size", cfg.LookupMemoSize)
	}
	return memo, closeFn, nil
}

func newMemory(_ context.Context, cfg config.Config) (cache.Store, func(), error) {
	s := memstore.New(
		memstore.WithCapacity(cfg.StoreCapacity),
		memstore.WithShards(cfg.StoreShards))
	return s, func() {}, nil
}

func newRedis(ctx context.Context, cfg config.Config) (cache.Store, func(), error) {
	rc, err := redisstore.New(ctx, cfg.Redis.Addr,
		redisstore.WithKeyPrefix(cfg.Redis.KeyPrefix),
		redisstore.WithDB(cfg.Redis.DB),
		redisstore.WithTTL(cfg.Redis.TTL))
	if err != nil {
		return nil, nil, err
	}
	return rc, func() { _ = rc.Close() }, nil
}
