// Package auth implements tenant user registration and login. All storage
// access goes through the row-filtered session, so every query is already
// restricted to the request's tenant.
package auth

import (
	"time"

	"github.com/google/uuid"
)

// Tenant user roles. The first user registered in a tenant becomes its
// admin; everyone after that is a regular user.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// User is a tenant-scoped account.
type User struct {
	ID        uuid.UUID `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
