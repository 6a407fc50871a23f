package tenant

import (
	"net/http"
	"regexp"
	"strings"
)

// DefaultHeader is the header carrying the tenant identifier.
const DefaultHeader = "X-Tenant-ID"

// identifierPattern is the allow-list for raw tenant identifiers. Anything
// outside alphanumerics, hyphen, and underscore is rejected before the value
// reaches a query or a cache key.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Resolver extracts a tenant identifier from an HTTP request.
type Resolver interface {
	// Resolve extracts and sanitizes the tenant identifier.
	// Returns ErrTenantMissing when no identifier is present and
	// ErrTenantInvalid when the raw value fails the allow-list check.
	Resolve(r *http.Request) (string, error)
}

// HeaderResolver extracts the tenant identifier from an HTTP header.
// Identifiers are case-insensitive at the API boundary; the resolved value
// is always canonical lowercase.
type HeaderResolver struct {
	// HeaderName is the name of the header to read.
	HeaderName string
}

// NewHeaderResolver creates a header resolver, defaulting to DefaultHeader.
func NewHeaderResolver(headerName string) *HeaderResolver {
	if headerName == "" {
		headerName = DefaultHeader
	}
	return &HeaderResolver{HeaderName: headerName}
}

// Resolve reads the configured header, rejects blank or malformed values,
// and returns the canonical lowercase identifier.
func (h *HeaderResolver) Resolve(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.Header.Get(h.HeaderName))
	if raw == "" {
		return "", ErrTenantMissing
	}

	if !identifierPattern.MatchString(raw) {
		return "", ErrTenantInvalid
	}

	return strings.ToLower(raw), nil
}

// ValidIdentifier reports whether s is an acceptable tenant identifier.
// Used by provisioning code to enforce the same allow-list on writes.
func ValidIdentifier(s string) bool {
	return s != "" && identifierPattern.MatchString(s)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(r *http.Request) (string, error)

func (f ResolverFunc) Resolve(r *http.Request) (string, error) {
	return f(r)
}
