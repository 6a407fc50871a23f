package auth

import "errors"

var (
	// ErrInvalidCredentials covers unknown email, wrong password, and
	// deactivated accounts alike, so login responses never reveal which
	// one it was.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrEmailAlreadyRegistered is returned when the email is taken within
	// the tenant.
	ErrEmailAlreadyRegistered = errors.New("auth: email already registered")

	// ErrInvalidEmail is returned when the email fails basic validation.
	ErrInvalidEmail = errors.New("auth: invalid email address")

	// ErrWeakPassword is returned when the password is shorter than
	// MinPasswordLength.
	ErrWeakPassword = errors.New("auth: password does not meet requirements")
)
