package storage

import (
	"context"
	"errors"
)

// LocalStore is the durable key-value cache the cart is persisted to.
// Consumers define this interface, not the Redis or MongoDB implementation.
type LocalStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

var ErrNotFound = errors.New("key not found")
