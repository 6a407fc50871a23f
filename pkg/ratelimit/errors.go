package ratelimit

import "errors"

var (
	// ErrInvalidConfig indicates that the limiter configuration is invalid.
	ErrInvalidConfig = errors.New("ratelimit: invalid configuration")

	// ErrStoreUnavailable indicates that the counter backend is unavailable.
	ErrStoreUnavailable = errors.New("ratelimit: store unavailable")
)
