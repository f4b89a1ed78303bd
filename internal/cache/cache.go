// Package cache defines the key-value store that holds tower locations.
package cache

import (
	"context"
	"errors"

	"github.com/mohammed-shakir/towercache/internal/model"
)

// ErrFull is returned by stores that refuse a new key because they are at capacity.
var ErrFull = errors.New("cache store is full")

// Store is the contract the loader writes to and reads from. A failed write is
// reported through the error; a missing key is reported through Fetch's bool.
type Store interface {
	Store(ctx context.Context, key string, loc model.Location) error
	Fetch(ctx context.Context, key string) (model.Location, bool, error)
	Exists(ctx context.Context, key string) (bool, error)
}
