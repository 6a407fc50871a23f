package tenant

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Shakvilla/saas-starter-template-shared-schema/core"
)

// ErrorHandler handles errors that occur during tenant resolution.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type middlewareConfig struct {
	errorHandler ErrorHandler
	skipPaths    []string
	log          *slog.Logger
}

// MiddlewareOption configures the middleware.
type MiddlewareOption func(*middlewareConfig)

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(h ErrorHandler) MiddlewareOption {
	return func(c *middlewareConfig) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithSkipPaths sets path prefixes that bypass tenant resolution entirely,
// such as the platform-admin API and health endpoints.
func WithSkipPaths(prefixes ...string) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.skipPaths = append(c.skipPaths, prefixes...)
	}
}

// WithMiddlewareLogger sets the logger.
func WithMiddlewareLogger(log *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// Middleware resolves the tenant for every request and binds the canonical
// identifier to the request context. Requests without a valid, active tenant
// never reach downstream handlers.
func Middleware(resolver Resolver, directory *Directory, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{
		errorHandler: DefaultErrorHandler,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			id, err := resolver.Resolve(r)
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}

			if _, err := directory.Validate(r.Context(), id); err != nil {
				cfg.log.WarnContext(r.Context(), "tenant validation failed",
					slog.String("tenant_id", id), slog.Any("error", err))
				cfg.errorHandler(w, r, err)
				return
			}

			ctx := WithID(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTenant rejects requests whose context carries no tenant binding.
// Use it to protect routes mounted outside the tenant resolution middleware.
func RequireTenant(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = DefaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := IDFromContext(r.Context()); !ok {
				errorHandler(w, r, ErrNoTenantInContext)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DefaultErrorHandler translates tenant errors to the standard envelope.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrTenantMissing):
		core.Error(w, r, http.StatusBadRequest, "Missing X-Tenant-ID header")
	case errors.Is(err, ErrTenantInvalid):
		core.Error(w, r, http.StatusBadRequest, "Tenant identifier contains invalid characters")
	case errors.Is(err, ErrTenantNotFound):
		core.Error(w, r, http.StatusNotFound, "Tenant not found")
	case errors.Is(err, ErrTenantDeactivated):
		core.Error(w, r, http.StatusForbidden, "Tenant is deactivated")
	case errors.Is(err, ErrNoTenantInContext):
		core.Error(w, r, http.StatusBadRequest, "Missing tenant context")
	default:
		core.Error(w, r, http.StatusInternalServerError, "Internal server error")
	}
}
