package tenant

import (
	"context"
	"log/slog"
	"time"
)

// DefaultCacheTTL bounds how long a stale tenant status can be served when a
// write path fails to invalidate the cache.
const DefaultCacheTTL = 5 * time.Minute

// Directory validates tenant identifiers against the backing store, caching
// successful lookups for a bounded TTL.
type Directory struct {
	provider Provider
	cache    Cache
	ttl      time.Duration
	log      *slog.Logger
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithCache sets a custom cache implementation.
func WithCache(cache Cache) DirectoryOption {
	return func(d *Directory) {
		if cache != nil {
			d.cache = cache
		}
	}
}

// WithCacheTTL sets the cache entry TTL.
func WithCacheTTL(ttl time.Duration) DirectoryOption {
	return func(d *Directory) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithDirectoryLogger sets the logger.
func WithDirectoryLogger(log *slog.Logger) DirectoryOption {
	return func(d *Directory) {
		if log != nil {
			d.log = log
		}
	}
}

// NewDirectory creates a Directory backed by the given provider. By default
// lookups are cached in a bounded in-memory cache for DefaultCacheTTL.
func NewDirectory(provider Provider, opts ...DirectoryOption) *Directory {
	d := &Directory{
		provider: provider,
		ttl:      DefaultCacheTTL,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.cache == nil {
		d.cache = NewInMemoryCache()
	}
	return d
}

// Validate checks that the tenant exists and is active. The existence
// snapshot is cached keyed by id; active status is re-checked on every call
// so a cached deactivated tenant is still rejected.
func (d *Directory) Validate(ctx context.Context, id string) (*Tenant, error) {
	if cached, ok := d.cache.Get(ctx, id); ok {
		if !cached.Active {
			return nil, ErrTenantDeactivated
		}
		return cached, nil
	}

	d.log.DebugContext(ctx, "validating tenant (cache miss)", slog.String("tenant_id", id))

	t, err := d.provider.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Inactive tenants are cached too: the deactivation verdict is as
	// cacheable as the activation one.
	d.cache.Set(ctx, id, t, d.ttl)

	if !t.Active {
		return nil, ErrTenantDeactivated
	}

	return t, nil
}

// Invalidate evicts the cache entry for id. Every write path that changes
// tenant state must call this so the new state is visible immediately rather
// than after the TTL window.
func (d *Directory) Invalidate(ctx context.Context, id string) {
	d.cache.Delete(ctx, id)
}

// Close releases the underlying cache resources.
func (d *Directory) Close() error {
	return d.cache.Close()
}
