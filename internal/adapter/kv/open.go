package kv

import (
	"fmt"

	"newsrag/internal/port"
)

// Backend names accepted by Open.
const (
	BackendRedis  = "redis"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// Open creates the KVStore for backend. For redis, target is the
// connection URL; for bolt, the database file path.
func Open(backend, target string) (port.KVStore, error) {
	switch backend {
	case BackendRedis, "":
		return NewRedisStore(target)
	case BackendBolt:
		return NewBoltStore(target)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", backend)
	}
}
