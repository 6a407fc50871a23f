package rowfilter

import (
	"context"
	"errors"
)

// ErrNoSessionInContext is returned when a repository asks for a scoped
// session outside the request pipeline.
var ErrNoSessionInContext = errors.New("rowfilter: no database session in context")

type contextKey struct{}

// WithSession binds a session to the context for the duration of a request.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext retrieves the session bound to the context.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok
}

// Require retrieves the session or fails with ErrNoSessionInContext.
func Require(ctx context.Context) (*Session, error) {
	s, ok := FromContext(ctx)
	if !ok {
		return nil, ErrNoSessionInContext
	}
	return s, nil
}
