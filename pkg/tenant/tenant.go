package tenant

import (
	"context"
	"time"
)

// Tenant represents a tenant with the minimal information needed for
// request-scoped validation. The ID is the canonical (lowercase) identifier
// used as the row discriminator in the shared schema.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Provider loads tenant information from a backing store.
type Provider interface {
	// GetByID retrieves a tenant by its canonical identifier.
	// Returns ErrTenantNotFound if no tenant matches.
	GetByID(ctx context.Context, id string) (*Tenant, error)
}
