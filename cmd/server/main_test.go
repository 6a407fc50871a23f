package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shakvilla/saas-starter-template-shared-schema/modules/admin"
	"github.com/Shakvilla/saas-starter-template-shared-schema/modules/auth"
	"github.com/Shakvilla/saas-starter-template-shared-schema/modules/users"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/async"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/authtoken"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/environment"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/ratelimit"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/rowfilter"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/tenant"
)

const routerSigningKey = "0123456789abcdef0123456789abcdef"

// fakeTenantStore backs both the tenant directory and the admin service.
type fakeTenantStore struct {
	mu      sync.Mutex
	lookups int
	tenants map[string]tenant.Tenant
}

func newFakeTenantStore(seed ...tenant.Tenant) *fakeTenantStore {
	s := &fakeTenantStore{tenants: make(map[string]tenant.Tenant)}
	for _, t := range seed {
		s.tenants[t.ID] = t
	}
	return s
}

func (s *fakeTenantStore) lookupCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups
}

func (s *fakeTenantStore) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lookups++
	t, ok := s.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return &t, nil
}

func (s *fakeTenantStore) Create(ctx context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tenants[t.ID] = *t
	return nil
}

func (s *fakeTenantStore) List(ctx context.Context) ([]tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]tenant.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		out = append(out, t)
	}
	return out, nil
}

func (s *fakeTenantStore) UpdateName(ctx context.Context, id, name string) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	t.Name = name
	s.tenants[id] = t
	return &t, nil
}

func (s *fakeTenantStore) SetActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[id]
	if !ok {
		return tenant.ErrTenantNotFound
	}
	t.Active = active
	s.tenants[id] = t
	return nil
}

func (s *fakeTenantStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[id]; !ok {
		return tenant.ErrTenantNotFound
	}
	delete(s.tenants, id)
	return nil
}

// fakeAcquirer counts session acquisitions and records the tenant each
// session was scoped to.
type fakeAcquirer struct {
	mu       sync.Mutex
	acquired int
	scoped   []string
}

func (a *fakeAcquirer) Acquire(ctx context.Context) (rowfilter.Conn, error) {
	a.mu.Lock()
	a.acquired++
	a.mu.Unlock()
	return &fakeConn{acq: a}, nil
}

func (a *fakeAcquirer) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acquired
}

func (a *fakeAcquirer) lastScopedTenant() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.scoped) == 0 {
		return ""
	}
	return a.scoped[len(a.scoped)-1]
}

type fakeConn struct{ acq *fakeAcquirer }

func (c *fakeConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if strings.Contains(sql, "set_config") && len(args) == 1 {
		if id, ok := args[0].(string); ok {
			c.acq.mu.Lock()
			c.acq.scoped = append(c.acq.scoped, id)
			c.acq.mu.Unlock()
		}
	}
	return pgconn.CommandTag{}, nil
}

func (c *fakeConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (c *fakeConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return errRow{err: pgx.ErrNoRows}
}

func (c *fakeConn) Release() {}

type errRow struct{ err error }

func (r errRow) Scan(dest ...any) error { return r.err }

// fakeAuthStorage knows no users: every login fails with the generic
// credential error.
type fakeAuthStorage struct{}

func (fakeAuthStorage) CreateUser(ctx context.Context, user *auth.User, passwordHash []byte) error {
	return nil
}

func (fakeAuthStorage) GetUserByEmail(ctx context.Context, email string) (*auth.User, []byte, error) {
	return nil, nil, auth.ErrInvalidCredentials
}

func (fakeAuthStorage) CountUsers(ctx context.Context) (int64, error) { return 0, nil }

type fakeAdminStore struct{}

func (fakeAdminStore) GetByEmail(ctx context.Context, email string) (*admin.Admin, []byte, error) {
	return nil, nil, admin.ErrInvalidCredentials
}

type fakeUsersStorage struct {
	mu   sync.Mutex
	byID map[uuid.UUID]users.User
}

func (s *fakeUsersStorage) put(u users.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[u.ID] = u
}

func (s *fakeUsersStorage) List(ctx context.Context) ([]users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]users.User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, u)
	}
	return out, nil
}

func (s *fakeUsersStorage) GetByID(ctx context.Context, id uuid.UUID) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return &u, nil
}

func (s *fakeUsersStorage) UpdateFullName(ctx context.Context, id uuid.UUID, fullName string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	u.FullName = fullName
	s.byID[id] = u
	return &u, nil
}

func (s *fakeUsersStorage) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return users.ErrUserNotFound
	}
	u.Active = active
	s.byID[id] = u
	return nil
}

type routerFixture struct {
	handler http.Handler
	tokens  *authtoken.Service
	tenants *fakeTenantStore
	acq     *fakeAcquirer
	users   *fakeUsersStorage
}

func newRouterFixture(t *testing.T, limit int) *routerFixture {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tokens, err := authtoken.New(authtoken.Config{SigningKey: routerSigningKey, TTL: time.Hour}, environment.Development, log)
	require.NoError(t, err)

	store := ratelimit.NewMemoryStore(ratelimit.WithSweepInterval(0))
	t.Cleanup(store.Close)

	limiter, err := ratelimit.New(store, ratelimit.Config{Limit: limit, Window: time.Minute})
	require.NoError(t, err)

	tenants := newFakeTenantStore(
		tenant.Tenant{ID: "acme", Name: "Acme", Active: true},
		tenant.Tenant{ID: "dormant", Name: "Dormant", Active: false},
	)
	directory := tenant.NewDirectory(tenants, tenant.WithDirectoryLogger(log))
	t.Cleanup(func() { _ = directory.Close() })

	runner := async.NewRunner(log)
	t.Cleanup(func() { _ = runner.Shutdown(context.Background()) })

	acq := &fakeAcquirer{}
	usersStore := &fakeUsersStorage{byID: make(map[uuid.UUID]users.User)}

	handler := newRouter(routerDeps{
		log:        log,
		limiter:    limiter,
		directory:  directory,
		gate:       rowfilter.New(acq, rowfilter.WithLogger(log)),
		tokens:     tokens,
		authSvc:    auth.NewService(fakeAuthStorage{}, tokens, runner, auth.WithLogger(log)),
		adminSvc:   admin.NewService(tenants, fakeAdminStore{}, tokens, directory, log),
		usersStore: usersStore,
	})

	return &routerFixture{
		handler: handler,
		tokens:  tokens,
		tenants: tenants,
		acq:     acq,
		users:   usersStore,
	}
}

func (f *routerFixture) do(t *testing.T, method, path, ip, tenantID, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-Forwarded-For", ip)
	if tenantID != "" {
		req.Header.Set(tenant.DefaultHeader, tenantID)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func envelopeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var env struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Message
}

func TestRouterThrottleBeforeTenantResolution(t *testing.T) {
	t.Parallel()

	login := map[string]string{"email": "someone@acme.test", "password": "wrong-password"}

	t.Run("login without a tenant header is still throttled", func(t *testing.T) {
		t.Parallel()

		f := newRouterFixture(t, 3)
		var statuses []int
		for iter := 0; iter < 5; iter++ {
			rec := f.do(t, http.MethodPost, "/api/v1/auth/login", "203.0.113.10", "", "", login)
			statuses = append(statuses, rec.Code)
		}

		assert.Equal(t, []int{400, 400, 400, 429, 429}, statuses)
		assert.Zero(t, f.tenants.lookupCount(), "throttled requests must not reach the directory")
		assert.Zero(t, f.acq.count(), "no session may be acquired without a tenant")
	})

	t.Run("over-limit requests stop costing directory lookups", func(t *testing.T) {
		t.Parallel()

		f := newRouterFixture(t, 3)
		var statuses []int
		for iter := 0; iter < 8; iter++ {
			rec := f.do(t, http.MethodPost, "/api/v1/auth/login", "203.0.113.11", "ghost", "", login)
			statuses = append(statuses, rec.Code)
		}

		assert.Equal(t, []int{404, 404, 404, 429, 429, 429, 429, 429}, statuses)
		assert.Equal(t, 3, f.tenants.lookupCount(), "rejected requests must not hit the directory")
	})

	t.Run("over-limit requests never acquire a database session", func(t *testing.T) {
		t.Parallel()

		f := newRouterFixture(t, 3)
		var statuses []int
		for iter := 0; iter < 8; iter++ {
			rec := f.do(t, http.MethodPost, "/api/v1/auth/login", "203.0.113.12", "acme", "", login)
			statuses = append(statuses, rec.Code)
		}

		assert.Equal(t, []int{401, 401, 401, 429, 429, 429, 429, 429}, statuses)
		assert.Equal(t, 3, f.acq.count(), "rejected requests must not acquire a session")
	})

	t.Run("admin login shares the brute-force window", func(t *testing.T) {
		t.Parallel()

		f := newRouterFixture(t, 3)
		var statuses []int
		for iter := 0; iter < 5; iter++ {
			rec := f.do(t, http.MethodPost, "/api/v1/admin/auth/login", "203.0.113.13", "", "", login)
			statuses = append(statuses, rec.Code)
		}

		assert.Equal(t, []int{401, 401, 401, 429, 429}, statuses)
	})

	t.Run("admin management is outside the window", func(t *testing.T) {
		t.Parallel()

		f := newRouterFixture(t, 3)
		for iter := 0; iter < 8; iter++ {
			rec := f.do(t, http.MethodGet, "/api/v1/admin/tenants", "203.0.113.14", "", "", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		}
	})

	t.Run("tenant routes outside login are not throttled", func(t *testing.T) {
		t.Parallel()

		f := newRouterFixture(t, 3)
		for iter := 0; iter < 8; iter++ {
			rec := f.do(t, http.MethodGet, "/api/v1/users/me", "203.0.113.15", "acme", "", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		}
	})
}

func TestRouterEndToEnd(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, 100)

	userID := uuid.New()
	f.users.put(users.User{
		ID:        userID,
		TenantID:  "acme",
		Email:     "owner@acme.test",
		FullName:  "Acme Owner",
		Role:      "ADMIN",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	})

	token, err := f.tokens.Issue(userID.String(), "acme", []string{"ADMIN"})
	require.NoError(t, err)

	t.Run("valid tenant and token reach the handler on a scoped session", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/users/me", "203.0.113.20", "acme", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got users.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "owner@acme.test", got.Email)
		assert.Equal(t, "acme", f.acq.lastScopedTenant())
	})

	t.Run("token issued for another tenant is rejected", func(t *testing.T) {
		foreign, err := f.tokens.Issue(userID.String(), "other-corp", []string{"ADMIN"})
		require.NoError(t, err)

		rec := f.do(t, http.MethodGet, "/api/v1/users/me", "203.0.113.21", "acme", foreign, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Token tenant does not match request tenant", envelopeMessage(t, rec))
	})

	t.Run("malformed token is rejected", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/users/me", "203.0.113.22", "acme", "not.a.token", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid token", envelopeMessage(t, rec))
	})

	t.Run("missing tenant header on a tenant route", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/users/me", "203.0.113.23", "", token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Missing X-Tenant-ID header", envelopeMessage(t, rec))
	})

	t.Run("deactivated tenant is rejected before any handler", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/users/me", "203.0.113.24", "dormant", token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Tenant is deactivated", envelopeMessage(t, rec))
	})

	t.Run("unknown route gets the standard envelope", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/nothing-here", "203.0.113.25", "", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Resource not found", envelopeMessage(t, rec))
	})
}
