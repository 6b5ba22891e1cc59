package query

import (
	"context"
	"fmt"
)

// Get is the typed form of Cache.Fetch.
func Get[T any](ctx context.Context, c *Cache, key Key, opts Options, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.Fetch(ctx, key, opts, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("query %s: cached %T, want %T", key, v, zero)
	}
	return typed, nil
}

// SetQueryData patches a cached typed value in place.
func SetQueryData[T any](c *Cache, key Key, fn func(T) T) bool {
	return c.SetData(key, func(old any) any {
		typed, ok := old.(T)
		if !ok {
			return old
		}
		return fn(typed)
	})
}

// Cached returns the typed value stored under key, if any.
func Cached[T any](c *Cache, key Key) (T, bool) {
	var zero T
	v, ok := c.Peek(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}
