package tenant

import (
	"context"
	"log/slog"
)

// contextKey is a private type to prevent collisions with other context keys.
type contextKey struct{}

// WithID binds the canonical tenant identifier to the context. The binding
// is request-scoped: it lives exactly as long as the derived context, so
// concurrent requests never observe each other's tenant.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IDFromContext retrieves the tenant identifier from the context.
// Returns "", false if no tenant is bound.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// RequireID retrieves the tenant identifier, failing with
// ErrNoTenantInContext if none is bound. Use this on code paths that must
// never run unscoped.
func RequireID(ctx context.Context) (string, error) {
	id, ok := IDFromContext(ctx)
	if !ok {
		return "", ErrNoTenantInContext
	}
	return id, nil
}

// Detach returns a background-rooted context carrying a snapshot of the
// current tenant binding. Use it for work spawned from a request handler that
// must outlive the request: the snapshot keeps the task tenant-safe while
// cancellation of the parent request no longer applies.
func Detach(ctx context.Context) context.Context {
	detached := context.Background()
	if id, ok := IDFromContext(ctx); ok {
		detached = WithID(detached, id)
	}
	return detached
}

// LoggerExtractor returns a logger context extractor that records the
// current tenant id on every log line emitted within a tenant scope.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := IDFromContext(ctx); ok {
			return slog.String("tenant_id", id), true
		}
		return slog.Attr{}, false
	}
}
