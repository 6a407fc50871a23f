// Package rowfilter restricts database access to the current tenant's rows.
//
// The gate hands out per-request database sessions whose connection carries
// the tenant identifier in the app.current_tenant setting. Row-level
// security policies on tenant-owned tables filter on that setting, so
// repositories never spell out the tenant predicate themselves. Sessions
// must be released deterministically: the connection returns to the pool and
// the setting is reset, so filter state cannot leak into a reused connection.
package rowfilter

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/tenant"
)

// Conn is the connection surface a session needs from the pool.
type Conn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Release()
}

// Acquirer hands out pooled connections.
type Acquirer interface {
	Acquire(ctx context.Context) (Conn, error)
}

// Gate acquires tenant-scoped database sessions.
type Gate struct {
	acq Acquirer
	log *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger used for teardown failures.
func WithLogger(log *slog.Logger) Option {
	return func(g *Gate) {
		if log != nil {
			g.log = log
		}
	}
}

// New creates a Gate over any Acquirer.
func New(acq Acquirer, opts ...Option) *Gate {
	g := &Gate{acq: acq, log: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewFromPool creates a Gate backed by a pgx connection pool.
func NewFromPool(pool *pgxpool.Pool, opts ...Option) *Gate {
	return New(poolAcquirer{pool}, opts...)
}

type poolAcquirer struct{ pool *pgxpool.Pool }

func (p poolAcquirer) Acquire(ctx context.Context) (Conn, error) {
	return p.pool.Acquire(ctx)
}

// Acquire returns a session scoped to the tenant bound to ctx. It fails with
// tenant.ErrNoTenantInContext when no tenant is bound: a scoped session must
// never silently fall through to unrestricted access.
func (g *Gate) Acquire(ctx context.Context) (*Session, error) {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := g.acq.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	// set_config with is_local=false pins the setting for the whole
	// connection; Release resets it before returning to the pool.
	if _, err := conn.Exec(ctx, "SELECT set_config('app.current_tenant', $1, false)", tenantID); err != nil {
		conn.Release()
		return nil, err
	}

	return &Session{conn: conn, tenantID: tenantID, log: g.log}, nil
}

// AcquireUnscoped returns a session without a tenant restriction. Only
// trusted cross-tenant code paths (platform administration) may use it.
func (g *Gate) AcquireUnscoped(ctx context.Context) (*Session, error) {
	conn, err := g.acq.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Session{conn: conn, log: g.log}, nil
}

// Session is a pooled connection bound to at most one tenant.
type Session struct {
	conn     Conn
	tenantID string
	log      *slog.Logger
	once     sync.Once
}

// TenantID returns the tenant the session is scoped to, or "" for an
// unscoped session.
func (s *Session) TenantID() string { return s.tenantID }

func (s *Session) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return s.conn.Exec(ctx, sql, args...)
}

func (s *Session) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return s.conn.Query(ctx, sql, args...)
}

func (s *Session) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return s.conn.QueryRow(ctx, sql, args...)
}

// Release resets the tenant setting and returns the connection to the pool.
// Calling it more than once is a no-op. A failed reset is logged rather than
// returned: teardown runs after the response may already be committed, and
// the connection is discarded either way.
func (s *Session) Release() {
	s.once.Do(func() {
		if s.tenantID != "" {
			if _, err := s.conn.Exec(context.Background(), "RESET app.current_tenant"); err != nil {
				s.log.Error("failed to reset tenant setting on release",
					slog.String("tenant_id", s.tenantID), slog.Any("error", err))
			}
		}
		s.conn.Release()
	})
}
