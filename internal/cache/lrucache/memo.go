// Package lrucache memoizes positive lookups in front of a slower store.
package lrucache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/towercache/internal/cache"
	"github.com/mohammed-shakir/towercache/internal/model"
	"github.com/mohammed-shakir/towercache/internal/observability"
)

const defaultSize = 4096

// Memo wraps a Store. Misses are never memoized, so a key stored later
// through another path is still found.
type Memo struct {
	next cache.Store
	lru  *lru.Cache[string, model.Location]
}

var _ cache.Store = (*Memo)(nil)

func New(next cache.Store, size int) (*Memo, error) {
	if next == nil {
		return nil, fmt.Errorf("lrucache: nil backing store")
	}
	if size <= 0 {
		size = defaultSize
	}
	c, err := lru.New[string, model.Location](size)
	if err != nil {
		return nil, fmt.Errorf("lrucache: %w", err)
	}
	return &Memo{next: next, lru: c}, nil
}

// Store writes through; the memo only reflects successful writes.
func (m *Memo) Store(ctx context.Context, key string, loc model.Location) error {
	if err := m.next.Store(ctx, key, loc); err != nil {
		return err
	}
	if m.lru.Contains(key) {
		m.lru.Add(key, loc)
	}
	return nil
}

func (m *Memo) Fetch(ctx context.Context, key string) (model.Location, bool, error) {
	if loc, ok := m.lru.Get(key); ok {
		observability.IncLookupMemo(true)
		return loc, true, nil
	}
	observability.IncLookupMemo(false)
	loc, ok, err := m.next.Fetch(ctx, key)
	if err != nil || !ok {
		return loc, ok, err
	}
	m.lru.Add(key, loc)
	return loc, true, nil
}

func (m *Memo) Exists(ctx context.Context, key string) (bool, error) {
	if m.lru.Contains(key) {
		return true, nil
	}
	return m.next.Exists(ctx, key)
}

func (m *Memo) Len() int { return m.lru.Len() }
