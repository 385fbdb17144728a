package cachemanager

import (
	"context"
	"sync"
	"time"
)

// LoadFunc produces the value for key on a cache miss.
type LoadFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// ReadThroughCache serves values from a CacheManager and loads misses
// through a LoadFunc. Failed loads are not cached. Concurrent misses for the
// same key share one load.
type ReadThroughCache[K comparable, V any] struct {
	cache   CacheManager[K, V]
	load    LoadFunc[K, V]
	ttl     time.Duration
	refresh bool
	bypass  bool

	mu       sync.Mutex
	inflight map[K]*pendingLoad[V]
}

type pendingLoad[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// ReadOption tunes a ReadThroughCache.
type ReadOption func(*readOptions)

type readOptions struct {
	ttl     time.Duration
	refresh bool
	bypass  bool
}

// WithTTL sets how long loaded values are kept. Zero uses the manager's
// default expiration.
func WithTTL(ttl time.Duration) ReadOption {
	return func(o *readOptions) { o.ttl = ttl }
}

// WithRefreshOnHit restarts a value's TTL every time it is read.
func WithRefreshOnHit() ReadOption {
	return func(o *readOptions) { o.refresh = true }
}

// WithBypass turns the cache off: every Get calls the LoadFunc.
func WithBypass(bypass bool) ReadOption {
	return func(o *readOptions) { o.bypass = bypass }
}

func NewReadThroughCache[K comparable, V any](cache CacheManager[K, V], load LoadFunc[K, V], opts ...ReadOption) *ReadThroughCache[K, V] {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &ReadThroughCache[K, V]{
		cache:    cache,
		load:     load,
		ttl:      o.ttl,
		refresh:  o.refresh,
		bypass:   o.bypass,
		inflight: make(map[K]*pendingLoad[V]),
	}
}

func (r *ReadThroughCache[K, V]) Get(ctx context.Context, key K) (V, error) {
	if r.bypass {
		return r.load(ctx, key)
	}

	var (
		value V
		ok    bool
	)
	if r.refresh {
		value, ok = r.cache.GetWithRefresh(ctx, key, r.ttl)
	} else {
		value, ok = r.cache.Get(ctx, key)
	}
	if ok {
		return value, nil
	}
	return r.loadShared(ctx, key)
}

func (r *ReadThroughCache[K, V]) loadShared(ctx context.Context, key K) (V, error) {
	r.mu.Lock()
	if p, ok := r.inflight[key]; ok {
		r.mu.Unlock()
		<-p.done
		return p.value, p.err
	}
	p := &pendingLoad[V]{done: make(chan struct{})}
	r.inflight[key] = p
	r.mu.Unlock()

	p.value, p.err = r.load(ctx, key)
	if p.err == nil {
		r.cache.Set(ctx, key, p.value, r.ttl)
	}

	r.mu.Lock()
	delete(r.inflight, key)
	r.mu.Unlock()
	close(p.done)
	return p.value, p.err
}

// Invalidate drops cached values so the next Get loads them again.
func (r *ReadThroughCache[K, V]) Invalidate(ctx context.Context, keys ...K) error {
	return r.cache.Delete(ctx, keys...)
}

// Reset drops every cached value.
func (r *ReadThroughCache[K, V]) Reset(ctx context.Context) error {
	return r.cache.Flush(ctx)
}
