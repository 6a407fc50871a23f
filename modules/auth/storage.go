package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/pg"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/rowfilter"
)

// Storage defines the persistence operations password authentication needs.
type Storage interface {
	// CreateUser inserts the user with its password hash.
	// Returns ErrEmailAlreadyRegistered on a duplicate email.
	CreateUser(ctx context.Context, user *User, passwordHash []byte) error

	// GetUserByEmail returns the user and its password hash.
	// Returns ErrInvalidCredentials when no user matches.
	GetUserByEmail(ctx context.Context, email string) (*User, []byte, error)

	// CountUsers counts the users visible through the current session.
	CountUsers(ctx context.Context) (int64, error)
}

// PGStorage persists users through the request's row-filtered session. The
// tenant predicate on reads comes from the RLS policy, not from SQL here;
// inserts stamp the session's tenant explicitly because RLS filters rows,
// it does not fill columns.
type PGStorage struct{}

// NewPGStorage creates the session-backed storage.
func NewPGStorage() *PGStorage {
	return &PGStorage{}
}

func (s *PGStorage) CreateUser(ctx context.Context, user *User, passwordHash []byte) error {
	sess, err := rowfilter.Require(ctx)
	if err != nil {
		return err
	}

	user.ID = uuid.New()
	user.TenantID = sess.TenantID()
	user.CreatedAt = time.Now().UTC()

	_, err = sess.Exec(ctx, `
		INSERT INTO users (id, tenant_id, email, full_name, password_hash, role, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.TenantID, user.Email, user.FullName, passwordHash, user.Role, user.Active, user.CreatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrEmailAlreadyRegistered
		}
		return err
	}
	return nil
}

func (s *PGStorage) GetUserByEmail(ctx context.Context, email string) (*User, []byte, error) {
	sess, err := rowfilter.Require(ctx)
	if err != nil {
		return nil, nil, err
	}

	var user User
	var hash []byte
	err = sess.QueryRow(ctx, `
		SELECT id, tenant_id, email, full_name, password_hash, role, active, created_at
		FROM users
		WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.TenantID, &user.Email, &user.FullName, &hash, &user.Role, &user.Active, &user.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	return &user, hash, nil
}

func (s *PGStorage) CountUsers(ctx context.Context) (int64, error) {
	sess, err := rowfilter.Require(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := sess.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

var _ Storage = (*PGStorage)(nil)
