// Package admin implements the platform administration surface: system
// admin login and tenant provisioning. Admin operations are cross-tenant by
// nature, so the stores here query the pool directly instead of going
// through the row-filtered session; the tenants and system_admins tables
// carry no row-level security.
package admin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/pg"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/tenant"
)

// Admin is a platform operator account. Unlike tenant users, admins carry
// fine-grained permissions that end up in their tokens.
type Admin struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// TenantStore persists tenants. GetByID doubles as the tenant.Provider used
// by the request pipeline's directory.
type TenantStore interface {
	tenant.Provider
	Create(ctx context.Context, t *tenant.Tenant) error
	List(ctx context.Context) ([]tenant.Tenant, error)
	UpdateName(ctx context.Context, id, name string) (*tenant.Tenant, error)
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

// AdminStore loads system admin accounts for authentication.
type AdminStore interface {
	// GetByEmail returns the admin and its password hash.
	// Returns ErrInvalidCredentials when no admin matches.
	GetByEmail(ctx context.Context, email string) (*Admin, []byte, error)
}

// PGTenantStore is the pgx-backed tenant store.
type PGTenantStore struct {
	pool *pgxpool.Pool
}

func NewPGTenantStore(pool *pgxpool.Pool) *PGTenantStore {
	return &PGTenantStore{pool: pool}
}

func (s *PGTenantStore) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, active, created_at FROM tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Active, &t.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *PGTenantStore) Create(ctx context.Context, t *tenant.Tenant) error {
	t.CreatedAt = time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tenants (id, name, active, created_at) VALUES ($1, $2, $3, $4)`,
		t.ID, t.Name, t.Active, t.CreatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrTenantAlreadyExists
		}
		return err
	}
	return nil
}

func (s *PGTenantStore) List(ctx context.Context) ([]tenant.Tenant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, active, created_at FROM tenants ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []tenant.Tenant
	for rows.Next() {
		var t tenant.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Active, &t.CreatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (s *PGTenantStore) UpdateName(ctx context.Context, id, name string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := s.pool.QueryRow(ctx,
		`UPDATE tenants SET name = $2 WHERE id = $1 RETURNING id, name, active, created_at`,
		id, name,
	).Scan(&t.ID, &t.Name, &t.Active, &t.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *PGTenantStore) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE tenants SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

func (s *PGTenantStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

// PGAdminStore is the pgx-backed system admin store.
type PGAdminStore struct {
	pool *pgxpool.Pool
}

func NewPGAdminStore(pool *pgxpool.Pool) *PGAdminStore {
	return &PGAdminStore{pool: pool}
}

func (s *PGAdminStore) GetByEmail(ctx context.Context, email string) (*Admin, []byte, error) {
	var a Admin
	var hash []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, roles, permissions, active, created_at
		FROM system_admins
		WHERE email = $1`, email,
	).Scan(&a.ID, &a.Email, &hash, &a.Roles, &a.Permissions, &a.Active, &a.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	return &a, hash, nil
}

var (
	_ TenantStore = (*PGTenantStore)(nil)
	_ AdminStore  = (*PGAdminStore)(nil)
)
