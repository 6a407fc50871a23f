package ratelimit_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/ratelimit"
)

type failingStore struct{}

func (failingStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	return 0, time.Time{}, errors.New("backend down")
}

func (failingStore) Reset(ctx context.Context, key string) error {
	return errors.New("backend down")
}

func newLimiter(t *testing.T, limit int) *ratelimit.Limiter {
	t.Helper()

	store := ratelimit.NewMemoryStore(ratelimit.WithSweepInterval(0))
	t.Cleanup(store.Close)

	limiter, err := ratelimit.New(store, ratelimit.Config{Limit: limit, Window: time.Minute})
	require.NoError(t, err)
	return limiter
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("allows up to the limit then rejects", func(t *testing.T) {
		t.Parallel()

		handler := ratelimit.Middleware(newLimiter(t, 10))(okHandler())

		for i := 0; i < 10; i++ {
			req := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
			req.RemoteAddr = "203.0.113.7:1234"

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
		}

		req := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
		req.RemoteAddr = "203.0.113.7:1234"

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Contains(t, rec.Body.String(), "Too many requests")
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("different clients do not share a window", func(t *testing.T) {
		t.Parallel()

		handler := ratelimit.Middleware(newLimiter(t, 1))(okHandler())

		first := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
		first.RemoteAddr = "203.0.113.8:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, first)
		require.Equal(t, http.StatusOK, rec.Code)

		second := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
		second.RemoteAddr = "203.0.113.9:1234"
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, second)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("sets rate limit headers on allowed requests", func(t *testing.T) {
		t.Parallel()

		handler := ratelimit.Middleware(newLimiter(t, 10))(okHandler())

		req := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
		req.RemoteAddr = "203.0.113.10:1234"

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "9", rec.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	})

	t.Run("proxy header drives the key", func(t *testing.T) {
		t.Parallel()

		handler := ratelimit.Middleware(newLimiter(t, 1))(okHandler())

		// Same RemoteAddr (the proxy), different originating clients.
		first := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
		first.RemoteAddr = "10.0.0.1:1234"
		first.Header.Set("X-Forwarded-For", "198.51.100.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, first)
		require.Equal(t, http.StatusOK, rec.Code)

		second := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
		second.RemoteAddr = "10.0.0.1:1234"
		second.Header.Set("X-Forwarded-For", "198.51.100.2")
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, second)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("store failure fails open", func(t *testing.T) {
		t.Parallel()

		limiter, err := ratelimit.New(failingStore{}, ratelimit.Config{Limit: 1, Window: time.Minute})
		require.NoError(t, err)

		handler := ratelimit.Middleware(limiter)(okHandler())

		req := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
		req.RemoteAddr = "203.0.113.11:1234"

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("custom key func", func(t *testing.T) {
		t.Parallel()

		handler := ratelimit.Middleware(newLimiter(t, 1),
			ratelimit.WithKeyFunc(func(r *http.Request) string {
				return r.Header.Get("X-API-Key")
			}),
		)(okHandler())

		first := httptest.NewRequest("POST", "/", nil)
		first.Header.Set("X-API-Key", "key-a")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, first)
		require.Equal(t, http.StatusOK, rec.Code)

		repeat := httptest.NewRequest("POST", "/", nil)
		repeat.Header.Set("X-API-Key", "key-a")
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, repeat)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})

	t.Run("empty key skips limiting", func(t *testing.T) {
		t.Parallel()

		handler := ratelimit.Middleware(newLimiter(t, 1),
			ratelimit.WithKeyFunc(func(r *http.Request) string { return "" }),
		)(okHandler())

		for iter := 0; iter < 3; iter++ {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})
}
