package auth

import (
	"context"

	"github.com/platinummonkey/roster/pkg/contextkeys"
)

// Role represents the authorization role carried by every user record.
// The set is closed: policy functions switch over it exhaustively so adding
// a role is a compile-visible change, not a scattered string comparison.
type Role string

const (
	// RoleUser is a plain member of a company
	RoleUser Role = "ROLE_USER"
	// RoleCompanyAdmin administers users within its own company
	RoleCompanyAdmin Role = "ROLE_COMPANY_ADMIN"
	// RoleSuperAdmin has cross-company visibility and is the only role
	// without a company association
	RoleSuperAdmin Role = "ROLE_SUPER_ADMIN"
)

// Roles returns all known roles
func Roles() []Role {
	return []Role{RoleUser, RoleCompanyAdmin, RoleSuperAdmin}
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleCompanyAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// String returns the wire representation of the role
func (r Role) String() string {
	return string(r)
}

// Principal is the authenticated caller's identity. Every authorization
// decision is a pure function of the principal plus the operation; the
// principal is resolved once per request by the auth middleware and never
// re-derived afterwards.
type Principal struct {
	UserID    int64  `json:"user_id"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	CompanyID *int64 `json:"company_id,omitempty"`
}

// IsSuperAdmin reports whether the principal holds the super admin role
func (p *Principal) IsSuperAdmin() bool {
	return p != nil && p.Role == RoleSuperAdmin
}

// PrincipalFromContext retrieves the authenticated principal from the
// request context. Returns nil for anonymous requests.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, ok := ctx.Value(contextkeys.PrincipalKey).(*Principal)
	if !ok {
		return nil
	}
	return p
}

// ContextWithPrincipal attaches the principal to the context
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return contextkeys.WithPrincipal(ctx, p)
}
