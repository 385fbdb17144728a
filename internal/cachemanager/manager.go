// Package cachemanager keeps parsed ranking files in memory between sort
// commands. InMemoryCacheManager stores values in go-cache and
// ReadThroughCache loads misses on demand.
package cachemanager

import (
	"context"
	"time"
)

// CacheManager is a keyed store with per-entry expiry. A ttl of zero means
// the store's default expiration.
type CacheManager[K comparable, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	// GetWithRefresh is Get that also restarts the entry's ttl on a hit.
	GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K) error
	Flush(ctx context.Context) error
}
