// Package directory holds the tenant model (companies and the users that
// belong to them) and the SQL-backed service that reads and writes it.
// Reads are narrowed by pkg/tenancy, writes validated by pkg/validation;
// the service is the single place both get applied.
package directory

import (
	"time"

	"github.com/platinummonkey/roster/pkg/auth"
)

// Company is the unit of data isolation. Its users are derived by query;
// there is no synchronized back-reference on the company row.
type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is a directory member. CompanyID is the owning tenant reference:
// present for company-bound roles, absent for super admins. Role and
// company are write-once at creation; no update path exists.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Role      auth.Role `json:"role"`
	CompanyID *int64    `json:"company,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Principal returns the authorization view of the user
func (u *User) Principal() *auth.Principal {
	return &auth.Principal{
		UserID:    u.ID,
		Name:      u.Name,
		Role:      u.Role,
		CompanyID: u.CompanyID,
	}
}

// UserFilter carries caller-supplied constraints on a user listing. The
// tenant scope is ANDed with these, never instead of them.
type UserFilter struct {
	Role *auth.Role
}
