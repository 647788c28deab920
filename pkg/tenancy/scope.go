// Package tenancy implements row-level scoping of read queries. Every User
// read issued on behalf of a non-super-admin principal is narrowed to the
// principal's own company by AND-ing a predicate into the query; other
// resources and super admins are left untouched. A single-item read that
// falls outside the predicate comes back empty, so callers observe a
// not-found rather than a forbidden record.
package tenancy

import (
	"fmt"

	"github.com/platinummonkey/roster/pkg/auth"
	"github.com/platinummonkey/roster/pkg/rbac"
)

// Predicate is a single column constraint appended to a query's WHERE
// clause. It composes with caller-supplied constraints and never replaces
// them.
type Predicate struct {
	Column string
	Value  interface{}
}

// UserScope returns the predicate restricting User reads for the given
// principal, or nil when no restriction applies (super admins see
// everything; anonymous callers never reach the query layer, but a nil
// principal is treated as unrestricted here for the same reason the gate
// already rejected it).
//
// A company-bound principal without a company violates the data model; the
// returned predicate then binds NULL and matches no rows, hiding everything
// rather than leaking anything.
func UserScope(p *auth.Principal) *Predicate {
	if p == nil || p.IsSuperAdmin() {
		return nil
	}

	pred := &Predicate{Column: "company_id"}
	if p.CompanyID != nil {
		pred.Value = *p.CompanyID
	}
	return pred
}

// Scope returns the predicate for a read of the given resource. Only User
// records are tenant-scoped; every other resource yields nil regardless of
// the principal.
func Scope(resource rbac.Resource, p *auth.Principal) *Predicate {
	if resource != rbac.ResourceUser {
		return nil
	}
	return UserScope(p)
}

// Append adds the predicate to an accumulated WHERE clause, numbering its
// placeholder after the existing args. A nil predicate is a no-op, so
// callers can append unconditionally.
func (p *Predicate) Append(where []string, args []interface{}) ([]string, []interface{}) {
	if p == nil {
		return where, args
	}
	args = append(args, p.Value)
	where = append(where, fmt.Sprintf("%s = $%d", p.Column, len(args)))
	return where, args
}
