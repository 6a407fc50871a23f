package authtoken

import "errors"

var (
	// ErrMissingSigningKey is returned when no signing key is configured.
	ErrMissingSigningKey = errors.New("authtoken: missing signing key")

	// ErrWeakSigningKey is returned in production when the signing key is
	// shorter than MinKeyBytes.
	ErrWeakSigningKey = errors.New("authtoken: signing key is too short")

	// ErrInvalidToken is returned for malformed tokens, bad signatures, and
	// unexpected signing algorithms.
	ErrInvalidToken = errors.New("authtoken: invalid token")

	// ErrExpiredToken is returned when the expiry claim is in the past.
	ErrExpiredToken = errors.New("authtoken: token is expired")

	// ErrTenantMismatch is returned when the token's tenant claim does not
	// match the tenant the request resolved to.
	ErrTenantMismatch = errors.New("authtoken: token tenant does not match request tenant")

	// ErrMissingTenantClaim is returned when a tenant-scoped check receives
	// a token without a tenant claim.
	ErrMissingTenantClaim = errors.New("authtoken: token carries no tenant claim")
)
