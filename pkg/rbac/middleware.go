package rbac

import (
	"net/http"

	"github.com/Shakvilla/saas-starter-template-shared-schema/core"
)

// RequireRole rejects requests whose principal lacks the role:
// 401 for anonymous requests, 403 for authenticated ones without the role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return requireFunc(func(p Principal) bool { return p.HasRole(role) })
}

// RequirePermission rejects requests whose principal lacks the fine-grained
// permission, honoring wildcard grants.
func RequirePermission(permission string) func(http.Handler) http.Handler {
	return requireFunc(func(p Principal) bool { return p.HasPermission(permission) })
}

func requireFunc(allowed func(Principal) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := FromContext(r.Context())
			if !ok {
				core.Error(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}
			if !allowed(p) {
				core.Error(w, r, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
