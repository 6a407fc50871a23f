package admin

import "errors"

var (
	// ErrInvalidCredentials covers unknown admin email, wrong password, and
	// deactivated admin accounts alike.
	ErrInvalidCredentials = errors.New("admin: invalid credentials")

	// ErrTenantAlreadyExists is returned when provisioning an identifier
	// that is already taken.
	ErrTenantAlreadyExists = errors.New("admin: tenant already exists")

	// ErrInvalidTenantID is returned when the identifier fails the
	// allow-list check.
	ErrInvalidTenantID = errors.New("admin: invalid tenant identifier")
)
