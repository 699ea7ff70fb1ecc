package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	rserrors "github.com/openbao-tools/realmsecrets/internal/errors"
)

// keyPrefix namespaces our entries inside a shared Redis.
const keyPrefix = "realmsecrets:"

// Redis is the distributed cache. Mutations through the admin surface
// evict here, so every replica sees the post-mutation state on its next
// resolution.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the Redis at address. Address takes the URL form
// accepted by the go-redis client (redis://host:port/db).
func NewRedis(address string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(address)
	if err != nil {
		return nil, rserrors.ConfigError{
			Field:      "cache.address",
			Value:      address,
			Message:    "invalid Redis address: " + err.Error(),
			Suggestion: "use the URL form, e.g. redis://cache.svc:6379/0",
		}
	}
	return &Redis{client: redis.NewClient(opts), ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, rserrors.TransportError{Message: "cache read for " + key, Err: err}
	}
	return value, true, nil
}

func (r *Redis) Put(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, keyPrefix+key, value, r.ttl).Err(); err != nil {
		return rserrors.TransportError{Message: "cache write for " + key, Err: err}
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return rserrors.TransportError{Message: "cache eviction for " + key, Err: err}
	}
	return nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
