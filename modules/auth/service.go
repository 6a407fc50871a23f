package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/async"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/authtoken"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/tenant"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// Service implements registration and login for tenant users.
type Service struct {
	storage    Storage
	tokens     *authtoken.Service
	runner     *async.Runner
	bcryptCost int
	log        *slog.Logger

	afterRegister func(ctx context.Context, user *User)
}

// ServiceOption configures the auth service.
type ServiceOption func(*Service)

// WithBcryptCost overrides the bcrypt cost factor.
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithAfterRegister sets a hook that runs as a background task after a
// successful registration, under a tenant-snapshot context.
func WithAfterRegister(fn func(ctx context.Context, user *User)) ServiceOption {
	return func(s *Service) {
		s.afterRegister = fn
	}
}

// NewService creates the auth service.
func NewService(storage Storage, tokens *authtoken.Service, runner *async.Runner, opts ...ServiceOption) *Service {
	s := &Service{
		storage:    storage,
		tokens:     tokens,
		runner:     runner,
		bcryptCost: bcrypt.DefaultCost,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.afterRegister == nil {
		s.afterRegister = func(ctx context.Context, user *User) {
			// Placeholder for a welcome email. The tenant attribute on this
			// line comes from the snapshot context, not the dead request.
			s.log.InfoContext(ctx, "user registered",
				slog.String("user_id", user.ID.String()),
				slog.String("role", user.Role))
		}
	}
	return s
}

// Register creates a user in the request's tenant. The first user of a
// tenant gets the ADMIN role; everyone after that gets USER.
func (s *Service) Register(ctx context.Context, email, password, fullName string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to hash password: %w", err)
	}

	count, err := s.storage.CountUsers(ctx)
	if err != nil {
		return nil, err
	}

	role := RoleUser
	if count == 0 {
		role = RoleAdmin
	}

	user := &User{
		Email:    email,
		FullName: strings.TrimSpace(fullName),
		Role:     role,
		Active:   true,
	}
	if err := s.storage.CreateUser(ctx, user, hash); err != nil {
		return nil, err
	}

	if s.runner != nil {
		_ = s.runner.Go(ctx, "after-register", func(taskCtx context.Context) error {
			s.afterRegister(taskCtx, user)
			return nil
		})
	}

	return user, nil
}

// Login verifies the credentials and issues a tenant-scoped token. Unknown
// email, wrong password, and deactivated accounts all fail with
// ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (string, time.Duration, error) {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return "", 0, err
	}

	email = strings.ToLower(strings.TrimSpace(email))

	user, hash, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		// Burn a comparison on a dummy hash so unknown emails take as long
		// as wrong passwords.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return "", 0, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", 0, ErrInvalidCredentials
	}

	if !user.Active {
		return "", 0, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID.String(), tenantID, []string{user.Role})
	if err != nil {
		return "", 0, fmt.Errorf("auth: failed to issue token: %w", err)
	}

	return token, s.tokens.ExpiresIn(), nil
}

// dummyHash is a bcrypt hash of a random string, used to equalize login
// timing when the email does not exist.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")
