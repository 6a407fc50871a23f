package tenant

import "errors"

var (
	// ErrTenantMissing is returned when a request carries no tenant identifier.
	ErrTenantMissing = errors.New("tenant: missing tenant identifier")

	// ErrTenantInvalid is returned when the identifier contains characters
	// outside the allow-list.
	ErrTenantInvalid = errors.New("tenant: invalid tenant identifier")

	// ErrTenantNotFound is returned when no tenant matches the identifier.
	ErrTenantNotFound = errors.New("tenant: tenant not found")

	// ErrTenantDeactivated is returned when the tenant exists but is inactive.
	ErrTenantDeactivated = errors.New("tenant: tenant is deactivated")

	// ErrNoTenantInContext is returned when an operation requires a tenant
	// but none is bound to the context.
	ErrNoTenantInContext = errors.New("tenant: no tenant in context")
)
