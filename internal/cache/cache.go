package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Flusher drops every entry. Import events use it to invalidate derived data.
type Flusher interface {
	Flush()
}

// TTLCache is a typed view over go-cache with a single expiry for every entry.
// A zero TTL disables caching: Set is a no-op and Get always misses.
type TTLCache[T any] struct {
	items    *gocache.Cache
	disabled bool
}

var (
	_ Cache[int] = (*TTLCache[int])(nil)
	_ Flusher    = (*TTLCache[int])(nil)
)

func NewTTL[T any](ttl time.Duration) *TTLCache[T] {
	if ttl <= 0 {
		return &TTLCache[T]{items: gocache.New(gocache.NoExpiration, 0), disabled: true}
	}
	return &TTLCache[T]{items: gocache.New(ttl, 2*ttl)}
}

func (c *TTLCache[T]) Get(key string) (T, bool) {
	var zero T
	if c.disabled {
		return zero, false
	}
	v, ok := c.items.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

func (c *TTLCache[T]) Set(key string, data T) {
	if c.disabled {
		return
	}
	c.items.SetDefault(key, data)
}

func (c *TTLCache[T]) Delete(key string) {
	c.items.Delete(key)
}

// Size counts entries, including expired ones not yet collected.
func (c *TTLCache[T]) Size() int {
	return c.items.ItemCount()
}

func (c *TTLCache[T]) Flush() {
	c.items.Flush()
}

// GetOrLoad returns the cached value for key or loads, stores and returns it.
// Load errors are not cached.
func GetOrLoad[T any](ctx context.Context, c Cache[T], key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}
