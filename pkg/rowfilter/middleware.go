package rowfilter

import (
	"net/http"
	"strings"

	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/tenant"
)

// Middleware acquires a tenant-scoped session for each request and releases
// it when the handler returns. The deferred release runs on success, on
// panic, and on client disconnect alike, so a scoped connection can never
// outlive its request. Paths under skipPrefixes bypass the gate; handlers on
// those paths acquire unscoped sessions themselves.
func Middleware(gate *Gate, errorHandler tenant.ErrorHandler, skipPrefixes ...string) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = tenant.DefaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range skipPrefixes {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			session, err := gate.Acquire(r.Context())
			if err != nil {
				errorHandler(w, r, err)
				return
			}
			defer session.Release()

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}
