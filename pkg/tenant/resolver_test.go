package tenant_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/tenant"
)

func TestHeaderResolver(t *testing.T) {
	t.Parallel()

	resolver := tenant.NewHeaderResolver("")

	t.Run("resolves and lowercases", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Tenant-ID", "Acme-Corp")

		id, err := resolver.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, "acme-corp", id)
	})

	t.Run("missing header", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/", nil)
		_, err := resolver.Resolve(req)
		assert.ErrorIs(t, err, tenant.ErrTenantMissing)
	})

	t.Run("blank header", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Tenant-ID", "   ")
		_, err := resolver.Resolve(req)
		assert.ErrorIs(t, err, tenant.ErrTenantMissing)
	})

	t.Run("injection characters rejected", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{"acme<script>", "acme'; DROP TABLE tenants;--", "acme;x", "acme corp", "acme/1"} {
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("X-Tenant-ID", raw)

			_, err := resolver.Resolve(req)
			assert.ErrorIs(t, err, tenant.ErrTenantInvalid, "raw value %q", raw)
		}
	})

	t.Run("hyphen and underscore allowed", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Tenant-ID", "acme_corp-2")

		id, err := resolver.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, "acme_corp-2", id)
	})

	t.Run("custom header name", func(t *testing.T) {
		t.Parallel()

		custom := tenant.NewHeaderResolver("X-Org-ID")
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Org-ID", "acme")

		id, err := custom.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, "acme", id)
	})
}

func TestValidIdentifier(t *testing.T) {
	t.Parallel()

	assert.True(t, tenant.ValidIdentifier("acme-corp_1"))
	assert.False(t, tenant.ValidIdentifier(""))
	assert.False(t, tenant.ValidIdentifier("acme corp"))
	assert.False(t, tenant.ValidIdentifier("acme;"))
}
