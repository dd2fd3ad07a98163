package cache

import (
	"context"
	"errors"
)

// ErrClosed is returned by a store used after Close.
var ErrClosed = errors.New("cache closed")

// Store is the local key-value persistence used as a write-through mirror.
// Values are JSON encoded.
type Store interface {
	// Get decodes the value at key into dst. It reports false when the key is absent.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Remove(ctx context.Context, key string) error
	Close() error
}
