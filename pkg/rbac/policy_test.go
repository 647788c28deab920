package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/platinummonkey/roster/pkg/auth"
)

func TestAllowsAdmissionTable(t *testing.T) {
	tests := []struct {
		role     auth.Role
		resource Resource
		op       Operation
		want     bool
	}{
		// Company reads are open to every authenticated role
		{auth.RoleUser, ResourceCompany, OperationList, true},
		{auth.RoleUser, ResourceCompany, OperationGet, true},
		{auth.RoleCompanyAdmin, ResourceCompany, OperationList, true},
		{auth.RoleCompanyAdmin, ResourceCompany, OperationGet, true},
		{auth.RoleSuperAdmin, ResourceCompany, OperationList, true},
		{auth.RoleSuperAdmin, ResourceCompany, OperationGet, true},

		// Company creation is super admin only
		{auth.RoleUser, ResourceCompany, OperationCreate, false},
		{auth.RoleCompanyAdmin, ResourceCompany, OperationCreate, false},
		{auth.RoleSuperAdmin, ResourceCompany, OperationCreate, true},

		// Company deletion is not exposed to anyone
		{auth.RoleSuperAdmin, ResourceCompany, OperationDelete, false},

		// User reads are open; narrowing happens in the query scoper
		{auth.RoleUser, ResourceUser, OperationList, true},
		{auth.RoleUser, ResourceUser, OperationGet, true},
		{auth.RoleCompanyAdmin, ResourceUser, OperationList, true},
		{auth.RoleSuperAdmin, ResourceUser, OperationGet, true},

		// User creation is denied for plain users outright
		{auth.RoleUser, ResourceUser, OperationCreate, false},
		{auth.RoleCompanyAdmin, ResourceUser, OperationCreate, true},
		{auth.RoleSuperAdmin, ResourceUser, OperationCreate, true},

		// User deletion is super admin only
		{auth.RoleUser, ResourceUser, OperationDelete, false},
		{auth.RoleCompanyAdmin, ResourceUser, OperationDelete, false},
		{auth.RoleSuperAdmin, ResourceUser, OperationDelete, true},
	}

	for _, tt := range tests {
		got := Allows(tt.role, tt.resource, tt.op)
		assert.Equal(t, tt.want, got, "%s %s.%s", tt.role, tt.resource, tt.op)
	}
}

func TestAllowsUnknownRole(t *testing.T) {
	assert.False(t, Allows(auth.Role("ROLE_INVALID"), ResourceUser, OperationList))
	assert.False(t, Allows(auth.Role(""), ResourceCompany, OperationGet))
}

func TestPolicyHelpers(t *testing.T) {
	for _, role := range auth.Roles() {
		assert.True(t, CanList(role))
		assert.True(t, CanGet(role))
	}

	assert.False(t, CanCreateUser(auth.RoleUser))
	assert.True(t, CanCreateUser(auth.RoleCompanyAdmin))
	assert.True(t, CanCreateUser(auth.RoleSuperAdmin))

	assert.False(t, CanCreateCompany(auth.RoleUser))
	assert.False(t, CanCreateCompany(auth.RoleCompanyAdmin))
	assert.True(t, CanCreateCompany(auth.RoleSuperAdmin))

	assert.False(t, CanDeleteUser(auth.RoleUser))
	assert.False(t, CanDeleteUser(auth.RoleCompanyAdmin))
	assert.True(t, CanDeleteUser(auth.RoleSuperAdmin))
}

func TestMayAssignRole(t *testing.T) {
	// Super admins may grant any role
	for _, target := range auth.Roles() {
		assert.True(t, MayAssignRole(auth.RoleSuperAdmin, target), "super admin -> %s", target)
	}

	// Company admins may grant anything except super admin
	assert.True(t, MayAssignRole(auth.RoleCompanyAdmin, auth.RoleUser))
	assert.True(t, MayAssignRole(auth.RoleCompanyAdmin, auth.RoleCompanyAdmin))
	assert.False(t, MayAssignRole(auth.RoleCompanyAdmin, auth.RoleSuperAdmin))

	// Plain users grant nothing
	for _, target := range auth.Roles() {
		assert.False(t, MayAssignRole(auth.RoleUser, target), "user -> %s", target)
	}
}

func TestRequiredGroups(t *testing.T) {
	groups := RequiredGroups(auth.RoleUser)
	assert.True(t, HasGroup(groups, GroupDefault))
	assert.True(t, HasGroup(groups, GroupCompanyRequired))
	assert.False(t, HasGroup(groups, GroupCompanyForbidden))

	groups = RequiredGroups(auth.RoleCompanyAdmin)
	assert.True(t, HasGroup(groups, GroupCompanyRequired))

	groups = RequiredGroups(auth.RoleSuperAdmin)
	assert.True(t, HasGroup(groups, GroupDefault))
	assert.True(t, HasGroup(groups, GroupCompanyForbidden))
	assert.False(t, HasGroup(groups, GroupCompanyRequired))

	groups = RequiredGroups(auth.Role("ROLE_INVALID"))
	assert.Equal(t, []Group{GroupDefault}, groups)
}
