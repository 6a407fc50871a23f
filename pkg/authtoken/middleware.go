package authtoken

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Shakvilla/saas-starter-template-shared-schema/core"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/rbac"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/tenant"
)

const bearerPrefix = "Bearer "

// ExtractBearerToken pulls the bearer token from the Authorization header.
// Returns an empty string when the header is absent or not a bearer scheme.
func ExtractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > len(bearerPrefix) && strings.EqualFold(auth[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(auth[len(bearerPrefix):])
	}
	return ""
}

// MiddlewareOption configures the authentication middlewares.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	log *slog.Logger
}

// WithMiddlewareLogger sets the logger used for rejected tokens.
func WithMiddlewareLogger(log *slog.Logger) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.log = log
	}
}

// TenantMiddleware authenticates tenant-scoped requests.
//
// Requests without an Authorization header pass through anonymously; route
// guards such as rbac.RequireRole decide whether anonymity is acceptable.
// When a token is present it must verify, and its tenant claim must match
// the tenant the request resolved to, compared case-insensitively so tokens
// issued before identifier canonicalization stay valid.
func TenantMiddleware(svc *Service, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := applyMiddlewareOptions(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractBearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := svc.Verify(token)
			if err != nil {
				rejectToken(w, r, cfg.log, err)
				return
			}

			if claims.Tenant == "" {
				// Admin tokens are not valid on tenant routes.
				rejectToken(w, r, cfg.log, ErrMissingTenantClaim)
				return
			}

			requestTenant, ok := tenant.IDFromContext(r.Context())
			if !ok {
				core.Error(w, r, http.StatusBadRequest, "Tenant context is required for authenticated requests")
				return
			}

			if !strings.EqualFold(claims.Tenant, requestTenant) {
				if cfg.log != nil {
					cfg.log.WarnContext(r.Context(), "token tenant does not match request tenant",
						slog.String("token_tenant", claims.Tenant))
				}
				core.Error(w, r, http.StatusForbidden, "Token tenant does not match request tenant")
				return
			}

			principal := rbac.NewPrincipal(claims.Subject, claims.Roles, nil)
			next.ServeHTTP(w, r.WithContext(rbac.WithPrincipal(r.Context(), principal)))
		})
	}
}

// AdminMiddleware authenticates platform-admin requests. Admin tokens carry
// no tenant claim and no tenant comparison happens; their permissions claim
// feeds fine-grained route guards.
func AdminMiddleware(svc *Service, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := applyMiddlewareOptions(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractBearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := svc.Verify(token)
			if err != nil {
				rejectToken(w, r, cfg.log, err)
				return
			}

			principal := rbac.NewPrincipal(claims.Subject, claims.Roles, claims.Permissions)
			next.ServeHTTP(w, r.WithContext(rbac.WithPrincipal(r.Context(), principal)))
		})
	}
}

func applyMiddlewareOptions(opts []MiddlewareOption) middlewareConfig {
	var cfg middlewareConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func rejectToken(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	if log != nil {
		log.DebugContext(r.Context(), "rejected bearer token", slog.String("reason", err.Error()))
	}

	message := "Invalid token"
	if errors.Is(err, ErrExpiredToken) {
		message = "Token is expired"
	}
	core.Error(w, r, http.StatusUnauthorized, message)
}
