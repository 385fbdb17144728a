package ranking

import (
	"context"
	"time"

	"github.com/zjrosen/classwind/internal/cachemanager"
	"github.com/zjrosen/classwind/internal/log"
)

// Provider resolves the ranking context for a file. It returns an error
// wrapping ErrNotFound when nothing can be resolved.
type Provider interface {
	Resolve(ctx context.Context, filePath, overridePath string) (*Context, error)
}

// PathWatcher is told about every ranking file the provider loads so it can
// report later changes.
type PathWatcher interface {
	Watch(path string) error
}

// CacheTTL is how long a parsed ranking file stays cached without a change
// notification.
const CacheTTL = 30 * time.Minute

// FileProvider resolves ranking files on disk and keeps parsed contexts in
// a read-through cache keyed by file path.
type FileProvider struct {
	cache   *cachemanager.ReadThroughCache[string, *Context]
	watcher PathWatcher
}

// ProviderOption configures a FileProvider.
type ProviderOption func(*fileProviderOptions)

type fileProviderOptions struct {
	manager   cachemanager.CacheManager[string, *Context]
	skipCache bool
	watcher   PathWatcher
}

// WithCacheManager replaces the default in-memory cache.
func WithCacheManager(m cachemanager.CacheManager[string, *Context]) ProviderOption {
	return func(o *fileProviderOptions) { o.manager = m }
}

// WithoutCache parses the ranking file on every call.
func WithoutCache() ProviderOption {
	return func(o *fileProviderOptions) { o.skipCache = true }
}

// WithWatcher registers every loaded ranking file with w.
func WithWatcher(w PathWatcher) ProviderOption {
	return func(o *fileProviderOptions) { o.watcher = w }
}

var _ Provider = (*FileProvider)(nil)

func NewFileProvider(opts ...ProviderOption) *FileProvider {
	o := fileProviderOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.manager == nil {
		o.manager = cachemanager.NewInMemoryCacheManager[string, *Context](
			"ranking", CacheTTL, cachemanager.DefaultCleanupInterval)
	}

	return &FileProvider{
		cache: cachemanager.NewReadThroughCache(o.manager,
			func(_ context.Context, path string) (*Context, error) { return Load(path) },
			cachemanager.WithTTL(CacheTTL),
			cachemanager.WithRefreshOnHit(),
			cachemanager.WithBypass(o.skipCache),
		),
		watcher: o.watcher,
	}
}

func (p *FileProvider) Resolve(ctx context.Context, filePath, overridePath string) (*Context, error) {
	path, err := Locate(filePath, overridePath)
	if err != nil {
		log.Debug(log.CatRanking, "no ranking file", "file", filePath, "override", overridePath)
		return nil, err
	}

	rc, err := p.cache.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	if p.watcher != nil {
		if err := p.watcher.Watch(path); err != nil {
			log.Warn(log.CatRanking, "cannot watch ranking file", "path", path, "error", err)
		}
	}

	log.Debug(log.CatRanking, "ranking resolved", "file", filePath, "source", path, "entries", rc.Len())
	return rc, nil
}

// Invalidate drops cached contexts for the given ranking file paths.
func (p *FileProvider) Invalidate(ctx context.Context, paths ...string) {
	if err := p.cache.Invalidate(ctx, paths...); err != nil {
		log.ErrorErr(log.CatRanking, "invalidating ranking cache", err)
		return
	}
	log.Info(log.CatRanking, "ranking cache invalidated", "paths", paths)
}

// Follow invalidates cached contexts for every batch of changed paths until
// ctx is done or changes is closed.
func (p *FileProvider) Follow(ctx context.Context, changes <-chan []string) {
	for {
		select {
		case <-ctx.Done():
			return
		case paths, ok := <-changes:
			if !ok {
				return
			}
			p.Invalidate(ctx, paths...)
		}
	}
}

// Static is a Provider that always returns the same context.
type Static struct {
	Context *Context
}

func (s Static) Resolve(context.Context, string, string) (*Context, error) {
	if s.Context == nil {
		return nil, ErrNotFound
	}
	return s.Context, nil
}
