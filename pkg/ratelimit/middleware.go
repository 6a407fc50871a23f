package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Shakvilla/saas-starter-template-shared-schema/core"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/clientip"
)

// KeyFunc extracts a rate limit key from the request.
type KeyFunc func(r *http.Request) string

// ByClientIP keys the limit on the caller's IP, honoring proxy headers.
func ByClientIP(r *http.Request) string {
	return clientip.GetIP(r)
}

// MiddlewareOption configures the rate limit middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	keyFunc KeyFunc
	log     *slog.Logger
}

// WithKeyFunc overrides the default client-IP key extraction.
func WithKeyFunc(fn KeyFunc) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.keyFunc = fn
	}
}

// WithLogger sets the logger for limit rejections and store failures.
func WithLogger(log *slog.Logger) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.log = log
	}
}

// Middleware enforces the limiter per request key and sets the standard
// X-RateLimit-* headers. Store failures fail open: throttling is a guard
// rail, not a reason to take authentication down with Redis.
func Middleware(limiter *Limiter, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := middlewareConfig{keyFunc: ByClientIP}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := cfg.keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := limiter.Allow(r.Context(), key)
			if err != nil {
				if cfg.log != nil {
					cfg.log.ErrorContext(r.Context(), "rate limit store failure, failing open",
						slog.String("error", err.Error()))
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, result.Remaining)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed() {
				if retryAfter := int(result.RetryAfter().Seconds()); retryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				}
				if cfg.log != nil {
					cfg.log.WarnContext(r.Context(), "rate limit exceeded",
						slog.String("key", key),
						slog.String("path", r.URL.Path))
				}
				core.Error(w, r, http.StatusTooManyRequests, "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
