package server

import (
	"testing"

	identitydomain "github.com/akadahq/akada/internal/identity/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer abc"))
	assert.Equal(t, "", bearerToken(""))
	assert.Equal(t, "", bearerToken("abc"))
	assert.Equal(t, "", bearerToken("Basic abc"))
}

func TestTenantScope(t *testing.T) {
	tenantID := snowflake.ID(1001)

	bound, scoped := tenantScope(&identitydomain.IdentityAccount{
		Role:     identitydomain.RoleTenantAdmin,
		TenantID: &tenantID,
	})
	assert.True(t, bound)
	assert.EqualValues(t, 1001, scoped)

	bound, _ = tenantScope(&identitydomain.IdentityAccount{
		Role:     identitydomain.RoleSuperAdmin,
		TenantID: &tenantID,
	})
	assert.False(t, bound)

	bound, _ = tenantScope(&identitydomain.IdentityAccount{Role: identitydomain.RoleStaff})
	assert.False(t, bound)

	bound, _ = tenantScope(nil)
	assert.False(t, bound)
}
