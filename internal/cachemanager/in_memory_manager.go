package cachemanager

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zjrosen/classwind/internal/log"
)

const (
	DefaultExpiration      = 10 * time.Minute
	DefaultCleanupInterval = 30 * time.Minute
)

var _ CacheManager[string, int] = (*InMemoryCacheManager[string, int])(nil)

// InMemoryCacheManager is a CacheManager over go-cache. Keys are any string
// type, such as a file path.
type InMemoryCacheManager[K ~string, V any] struct {
	name  string
	items *gocache.Cache
}

// NewInMemoryCacheManager creates an empty store. name tags its log lines.
func NewInMemoryCacheManager[K ~string, V any](name string, defaultExpiration, cleanupInterval time.Duration) *InMemoryCacheManager[K, V] {
	return &InMemoryCacheManager[K, V]{
		name:  name,
		items: gocache.New(defaultExpiration, cleanupInterval),
	}
}

func (m *InMemoryCacheManager[K, V]) Get(_ context.Context, key K) (V, bool) {
	var zero V
	raw, found := m.items.Get(string(key))
	if !found {
		log.Debug(log.CatCache, "miss", "cache", m.name, "key", key)
		return zero, false
	}
	value, ok := raw.(V)
	if !ok {
		// Only reachable if something else wrote into the underlying cache.
		log.Error(log.CatCache, "cached value has the wrong type", "cache", m.name, "key", key)
		return zero, false
	}
	log.Debug(log.CatCache, "hit", "cache", m.name, "key", key)
	return value, true
}

func (m *InMemoryCacheManager[K, V]) GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool) {
	value, ok := m.Get(ctx, key)
	if ok {
		m.Set(ctx, key, value, ttl)
	}
	return value, ok
}

func (m *InMemoryCacheManager[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	m.items.Set(string(key), value, ttl)
}

func (m *InMemoryCacheManager[K, V]) Delete(_ context.Context, keys ...K) error {
	if len(keys) == 0 {
		return nil
	}
	for _, key := range keys {
		m.items.Delete(string(key))
	}
	log.Debug(log.CatCache, "invalidated", "cache", m.name, "keys", len(keys))
	return nil
}

func (m *InMemoryCacheManager[K, V]) Flush(_ context.Context) error {
	m.items.Flush()
	log.Debug(log.CatCache, "flushed", "cache", m.name)
	return nil
}

// Len counts unexpired entries.
func (m *InMemoryCacheManager[K, V]) Len() int {
	return m.items.ItemCount()
}
