package port

import (
	"context"
	"time"
)

// KVStore is a durable key-value store with per-key expiry.
// Get returns domain.ErrNotFound for absent or expired keys.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes value under key. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, keys ...string) error

	// Keys lists live keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	Ping(ctx context.Context) error

	Close() error
}
