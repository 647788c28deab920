package rbac

import (
	"github.com/platinummonkey/roster/pkg/auth"
)

// Resource represents a resource type in the system
type Resource string

const (
	ResourceCompany Resource = "company"
	ResourceUser    Resource = "user"
)

// Operation represents an operation performed on a resource
type Operation string

const (
	OperationList   Operation = "list"
	OperationGet    Operation = "get"
	OperationCreate Operation = "create"
	OperationDelete Operation = "delete"
)

// Allows reports whether a role may invoke the given operation on the given
// resource at all. This is the coarse admission check; tenant narrowing of
// reads happens in pkg/tenancy afterwards.
func Allows(role auth.Role, resource Resource, op Operation) bool {
	if !role.Valid() {
		return false
	}

	switch resource {
	case ResourceCompany:
		switch op {
		case OperationList, OperationGet:
			return true
		case OperationCreate:
			return role == auth.RoleSuperAdmin
		case OperationDelete:
			// Company deletion is not exposed
			return false
		}
	case ResourceUser:
		switch op {
		case OperationList, OperationGet:
			return true
		case OperationCreate:
			return role == auth.RoleCompanyAdmin || role == auth.RoleSuperAdmin
		case OperationDelete:
			return role == auth.RoleSuperAdmin
		}
	}
	return false
}

// CanList reports whether the role may list records of any resource
func CanList(role auth.Role) bool {
	return Allows(role, ResourceUser, OperationList)
}

// CanGet reports whether the role may fetch a single record
func CanGet(role auth.Role) bool {
	return Allows(role, ResourceUser, OperationGet)
}

// CanCreateUser reports whether the role may create users
func CanCreateUser(role auth.Role) bool {
	return Allows(role, ResourceUser, OperationCreate)
}

// CanCreateCompany reports whether the role may create companies
func CanCreateCompany(role auth.Role) bool {
	return Allows(role, ResourceCompany, OperationCreate)
}

// CanDeleteUser reports whether the role may delete users
func CanDeleteUser(role auth.Role) bool {
	return Allows(role, ResourceUser, OperationDelete)
}

// MayAssignRole reports whether a principal with actingRole may create a
// user with targetRole. Super admins may grant anything; company admins may
// grant anything except super admin; plain users grant nothing (their
// creation attempts are already denied at the gate).
func MayAssignRole(actingRole, targetRole auth.Role) bool {
	switch actingRole {
	case auth.RoleSuperAdmin:
		return true
	case auth.RoleCompanyAdmin:
		return targetRole != auth.RoleSuperAdmin
	case auth.RoleUser:
		return false
	}
	return false
}

// Group names a conditionally activated validation rule set
type Group string

const (
	// GroupDefault always applies
	GroupDefault Group = "default"
	// GroupCompanyRequired requires a company association on the record
	GroupCompanyRequired Group = "company_required"
	// GroupCompanyForbidden requires the company association to be null
	GroupCompanyForbidden Group = "company_forbidden"
)

// RequiredGroups returns the validation groups activated by the target
// role: company-bound roles must carry a company, super admins must not.
// An unknown target role yields only the default group; role membership is
// validated separately.
func RequiredGroups(targetRole auth.Role) []Group {
	switch targetRole {
	case auth.RoleUser, auth.RoleCompanyAdmin:
		return []Group{GroupDefault, GroupCompanyRequired}
	case auth.RoleSuperAdmin:
		return []Group{GroupDefault, GroupCompanyForbidden}
	}
	return []Group{GroupDefault}
}

// HasGroup reports whether the group is in the set
func HasGroup(groups []Group, g Group) bool {
	for _, have := range groups {
		if have == g {
			return true
		}
	}
	return false
}
