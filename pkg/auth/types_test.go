package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	for _, role := range Roles() {
		assert.True(t, role.Valid(), "expected %s to be valid", role)
	}

	assert.False(t, Role("ROLE_INVALID").Valid())
	assert.False(t, Role("").Valid())
	assert.False(t, Role("role_user").Valid(), "role values are case sensitive")
}

func TestPrincipalIsSuperAdmin(t *testing.T) {
	companyID := int64(1)

	assert.True(t, (&Principal{UserID: 1, Role: RoleSuperAdmin}).IsSuperAdmin())
	assert.False(t, (&Principal{UserID: 2, Role: RoleUser, CompanyID: &companyID}).IsSuperAdmin())
	assert.False(t, (&Principal{UserID: 3, Role: RoleCompanyAdmin, CompanyID: &companyID}).IsSuperAdmin())

	var nilPrincipal *Principal
	assert.False(t, nilPrincipal.IsSuperAdmin())
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	companyID := int64(7)
	p := &Principal{UserID: 42, Name: "Jane Doe", Role: RoleCompanyAdmin, CompanyID: &companyID}

	ctx := ContextWithPrincipal(context.Background(), p)
	assert.Equal(t, p, PrincipalFromContext(ctx))
}

func TestPrincipalFromContextAnonymous(t *testing.T) {
	assert.Nil(t, PrincipalFromContext(context.Background()))
}
