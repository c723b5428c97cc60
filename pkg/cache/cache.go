package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations interface. Values are stored JSON-encoded
// so every backend round-trips the same shapes.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
}

// GetOrLoad returns the cached value for key, or calls load and caches its
// result. Cache errors never fail the call; only load errors do.
func GetOrLoad[T any](ctx context.Context, c Service, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var out T
	if err := c.Get(ctx, key, &out); err == nil {
		return out, nil
	}

	out, err := load(ctx)
	if err != nil {
		return out, err
	}
	_ = c.Set(ctx, key, out, ttl)
	return out, nil
}
