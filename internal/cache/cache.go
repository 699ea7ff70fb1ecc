// Package cache holds resolved secret values between resolutions. The
// contract is deliberately narrow: get, put, delete, no compare-and-set
// and no locking. Concurrent resolvers may both miss and both fetch;
// they write the same value, so the cache converges.
package cache

import (
	"context"
	"time"

	rserrors "github.com/openbao-tools/realmsecrets/internal/errors"
)

// Cache is the shared store for resolved values, keyed by
// "<fullPath>:<field>".
type Cache interface {
	// Get returns the cached value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key, value string) error

	// Delete removes key. Removing an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// New builds the cache implementation selected by name. An empty name
// means caching is disabled and the caller should not call New at all.
func New(name, address string, ttl time.Duration) (Cache, error) {
	switch name {
	case "memory":
		return NewMemory(ttl), nil
	case "redis":
		return NewRedis(address, ttl)
	default:
		return nil, rserrors.ConfigError{
			Field:      "cache.name",
			Value:      name,
			Message:    "unknown cache implementation",
			Suggestion: "use 'memory' or 'redis', or omit the cache block to disable caching",
		}
	}
}
