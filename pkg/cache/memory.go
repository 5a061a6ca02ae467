package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultCleanupInterval is how often MemoryCache evicts expired entries.
const DefaultCleanupInterval = 10 * time.Minute

// MemoryCache is an in-process cache for a single server.
type MemoryCache struct {
	c *gocache.Cache
}

// NewMemoryCache returns an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{c: gocache.New(gocache.NoExpiration, DefaultCleanupInterval)}
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	data, ok := v.([]byte)
	return data, ok, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.c.Set(key, data, ttl)
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.c.Delete(key)
	return nil
}

// Len returns the number of entries, including expired ones not yet evicted.
func (m *MemoryCache) Len() int { return m.c.ItemCount() }

// Clear drops every entry.
func (m *MemoryCache) Clear() error {
	m.c.Flush()
	return nil
}

func (m *MemoryCache) Close() error {
	m.c.Flush()
	return nil
}

var _ Cache = (*MemoryCache)(nil)
