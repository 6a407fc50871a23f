package ratelimit

import (
	"context"
	"time"
)

// Store is a fixed-window counter backend.
type Store interface {
	// Increment bumps the counter for the key's current window and returns
	// the new count together with the window's reset time. The counter
	// advances even for requests that end up rejected, so a client hammering
	// past the limit never earns back capacity early.
	Increment(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)

	// Reset clears the counter for the given key.
	Reset(ctx context.Context, key string) error
}
