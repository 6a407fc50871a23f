// Package ratelimit implements fixed-window request throttling keyed by
// client IP, guarding the unauthenticated authentication endpoints against
// brute-force attempts.
//
// The window is fixed rather than sliding: the first request for a key opens
// a window, every request within it counts against the limit, and the
// counter keeps advancing even for rejected requests. Once the window
// elapses the count starts over.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Config holds fixed-window limiter configuration.
type Config struct {
	Limit  int           `env:"RATE_LIMIT_REQUESTS" envDefault:"10"`
	Window time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`
}

func (c Config) validate() error {
	if c.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidConfig, c.Limit)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %v", ErrInvalidConfig, c.Window)
	}
	return nil
}

// Result describes the outcome of a rate limit check.
type Result struct {
	Limit     int       // Maximum requests per window
	Remaining int       // Requests left in the current window, negative when over
	ResetAt   time.Time // When the current window ends
}

// Allowed reports whether the request fits within the window.
func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter returns how long to wait before the window resets.
// Returns 0 if the request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Limiter enforces a fixed-window limit over a counter store.
type Limiter struct {
	store  Store
	config Config
}

// New creates a fixed-window limiter.
func New(store Store, config Config) (*Limiter, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	return &Limiter{
		store:  store,
		config: config,
	}, nil
}

// Allow records a request against the key's current window and reports
// whether it fits within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) (*Result, error) {
	count, resetAt, err := l.store.Increment(ctx, key, l.config.Window)
	if err != nil {
		return nil, err
	}

	return &Result{
		Limit:     l.config.Limit,
		Remaining: l.config.Limit - int(count),
		ResetAt:   resetAt,
	}, nil
}

// Reset clears the counter for the given key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}
