// Package users exposes tenant-scoped user management. Every query runs on
// the request's row-filtered session, so listings and lookups only ever see
// the current tenant's rows without spelling out a tenant predicate.
package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/pg"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/rowfilter"
)

// ErrUserNotFound is returned when no user matches within the tenant.
var ErrUserNotFound = errors.New("users: user not found")

// User is the management view of a tenant account. The password hash never
// leaves the storage layer.
type User struct {
	ID        uuid.UUID `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Storage defines the persistence operations user management needs.
type Storage interface {
	List(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateFullName(ctx context.Context, id uuid.UUID, fullName string) (*User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

const userColumns = `id, tenant_id, email, full_name, role, active, created_at`

// PGStorage reads and writes users through the row-filtered session.
type PGStorage struct{}

func NewPGStorage() *PGStorage {
	return &PGStorage{}
}

func (s *PGStorage) List(ctx context.Context) ([]User, error) {
	sess, err := rowfilter.Require(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := sess.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.TenantID, &u.Email, &u.FullName, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PGStorage) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	sess, err := rowfilter.Require(ctx)
	if err != nil {
		return nil, err
	}

	var u User
	err = sess.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.TenantID, &u.Email, &u.FullName, &u.Role, &u.Active, &u.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PGStorage) UpdateFullName(ctx context.Context, id uuid.UUID, fullName string) (*User, error) {
	sess, err := rowfilter.Require(ctx)
	if err != nil {
		return nil, err
	}

	var u User
	err = sess.QueryRow(ctx, `
		UPDATE users SET full_name = $2
		WHERE id = $1
		RETURNING `+userColumns,
		id, fullName,
	).Scan(&u.ID, &u.TenantID, &u.Email, &u.FullName, &u.Role, &u.Active, &u.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PGStorage) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	sess, err := rowfilter.Require(ctx)
	if err != nil {
		return err
	}

	tag, err := sess.Exec(ctx, `UPDATE users SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

var _ Storage = (*PGStorage)(nil)
