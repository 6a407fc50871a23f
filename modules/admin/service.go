package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/authtoken"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/tenant"
)

// Service implements platform administration: system admin login and tenant
// lifecycle management.
type Service struct {
	tenants   TenantStore
	admins    AdminStore
	tokens    *authtoken.Service
	directory *tenant.Directory
	log       *slog.Logger
}

// NewService creates the admin service. The directory is the same instance
// the request pipeline validates against; every tenant write path below
// invalidates its cache entry so state changes take effect immediately
// instead of after the cache TTL.
func NewService(tenants TenantStore, admins AdminStore, tokens *authtoken.Service, directory *tenant.Directory, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		tenants:   tenants,
		admins:    admins,
		tokens:    tokens,
		directory: directory,
		log:       log,
	}
}

// Login verifies system admin credentials and issues an admin token carrying
// the account's roles and permissions. Admin tokens have no tenant claim.
func (s *Service) Login(ctx context.Context, email, password string) (string, time.Duration, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	admin, hash, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return "", 0, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", 0, ErrInvalidCredentials
	}

	if !admin.Active {
		return "", 0, ErrInvalidCredentials
	}

	token, err := s.tokens.IssueAdmin(admin.ID.String(), admin.Roles, admin.Permissions)
	if err != nil {
		return "", 0, fmt.Errorf("admin: failed to issue token: %w", err)
	}

	return token, s.tokens.ExpiresIn(), nil
}

// CreateTenant provisions a tenant. The identifier goes through the same
// allow-list as the request header and is stored in canonical lowercase.
func (s *Service) CreateTenant(ctx context.Context, id, name string) (*tenant.Tenant, error) {
	id = strings.TrimSpace(id)
	if !tenant.ValidIdentifier(id) {
		return nil, ErrInvalidTenantID
	}
	id = strings.ToLower(id)

	t := &tenant.Tenant{
		ID:     id,
		Name:   strings.TrimSpace(name),
		Active: true,
	}
	if err := s.tenants.Create(ctx, t); err != nil {
		return nil, err
	}

	// A freshly created id may be cached as not-found by a lookup that
	// raced the insert.
	s.directory.Invalidate(ctx, id)

	s.log.InfoContext(ctx, "tenant provisioned", slog.String("tenant_id", id))
	return t, nil
}

// ListTenants returns all tenants.
func (s *Service) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	return s.tenants.List(ctx)
}

// GetTenant returns one tenant by canonical id.
func (s *Service) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	return s.tenants.GetByID(ctx, strings.ToLower(id))
}

// UpdateTenant renames a tenant.
func (s *Service) UpdateTenant(ctx context.Context, id, name string) (*tenant.Tenant, error) {
	id = strings.ToLower(id)

	t, err := s.tenants.UpdateName(ctx, id, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}

	s.directory.Invalidate(ctx, id)
	return t, nil
}

// SetTenantActive activates or deactivates a tenant. Deactivation takes
// effect on the next request for that tenant, not after the cache TTL.
func (s *Service) SetTenantActive(ctx context.Context, id string, active bool) error {
	id = strings.ToLower(id)

	if err := s.tenants.SetActive(ctx, id, active); err != nil {
		return err
	}

	s.directory.Invalidate(ctx, id)

	s.log.InfoContext(ctx, "tenant status changed",
		slog.String("tenant_id", id), slog.Bool("active", active))
	return nil
}

// DeleteTenant removes a tenant record. Tenant-owned rows go with it via
// foreign key cascade.
func (s *Service) DeleteTenant(ctx context.Context, id string) error {
	id = strings.ToLower(id)

	if err := s.tenants.Delete(ctx, id); err != nil {
		return err
	}

	s.directory.Invalidate(ctx, id)

	s.log.InfoContext(ctx, "tenant deleted", slog.String("tenant_id", id))
	return nil
}

// dummyHash equalizes login timing for unknown admin emails.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")
