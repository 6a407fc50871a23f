package rbac

import "errors"

var (
	// ErrNoPrincipal is returned when an operation requires authentication
	// but the request is anonymous.
	ErrNoPrincipal = errors.New("rbac: no authenticated principal")

	// ErrInsufficientPermissions is returned when the principal lacks a
	// required authority.
	ErrInsufficientPermissions = errors.New("rbac: insufficient permissions")
)
