package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/roster/pkg/auth"
)

func companyAdmin() *auth.Principal {
	companyID := int64(1)
	return &auth.Principal{UserID: 10, Role: auth.RoleCompanyAdmin, CompanyID: &companyID}
}

func superAdmin() *auth.Principal {
	return &auth.Principal{UserID: 11, Role: auth.RoleSuperAdmin}
}

func TestValidateUserAccepted(t *testing.T) {
	companyID := int64(3)

	result := ValidateUser(UserInput{
		Name:      "John Doe",
		Role:      "ROLE_USER",
		CompanyID: &companyID,
	}, companyAdmin())

	assert.True(t, result.Valid(), "unexpected violations: %v", result.Violations)
}

func TestValidateUserName(t *testing.T) {
	companyID := int64(3)

	tests := []struct {
		name    string
		value   string
		message string
	}{
		{"blank", "", MsgNotBlank},
		{"whitespace only", "   ", MsgNotBlank},
		{"too short", "Jo", MsgTooShort(3)},
		{"too long", strings.Repeat("A", 101), MsgTooLong(100)},
		{"no uppercase", "john doe", MsgNameFormat},
		{"digits", "John Doe 2", MsgNameFormat},
		{"punctuation", "John-Doe", MsgNameFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateUser(UserInput{
				Name:      tt.value,
				Role:      "ROLE_USER",
				CompanyID: &companyID,
			}, companyAdmin())

			require.False(t, result.Valid())
			assert.Contains(t, result.Violations, Violation{Field: "name", Message: tt.message})
		})
	}
}

func TestValidateUserRoleRequired(t *testing.T) {
	companyID := int64(3)

	result := ValidateUser(UserInput{Name: "John Doe", CompanyID: &companyID}, companyAdmin())

	require.False(t, result.Valid())
	assert.Contains(t, result.Violations, Violation{Field: "role", Message: MsgNotBlank})
}

func TestValidateUserRoleMembership(t *testing.T) {
	companyID := int64(3)

	result := ValidateUser(UserInput{
		Name:      "John Doe",
		Role:      "ROLE_INVALID",
		CompanyID: &companyID,
	}, companyAdmin())

	require.False(t, result.Valid())
	assert.Contains(t, result.Violations, Violation{Field: "role", Message: MsgInvalidRole})
	// Unknown roles never reach the escalation or company-presence rules
	assert.False(t, result.Has("company"))
}

func TestValidateUserRoleEscalation(t *testing.T) {
	result := ValidateUser(UserInput{
		Name: "John Doe",
		Role: "ROLE_SUPER_ADMIN",
	}, companyAdmin())

	require.False(t, result.Valid())
	assert.Contains(t, result.Violations, Violation{
		Field:   "role",
		Message: "You are not allowed to set the ROLE_SUPER_ADMIN role",
	})
}

func TestValidateUserSuperAdminMayAssignAnyRole(t *testing.T) {
	companyID := int64(3)

	for _, role := range auth.Roles() {
		in := UserInput{Name: "John Doe", Role: role.String()}
		if role != auth.RoleSuperAdmin {
			in.CompanyID = &companyID
		}

		result := ValidateUser(in, superAdmin())
		assert.True(t, result.Valid(), "super admin assigning %s: %v", role, result.Violations)
	}
}

func TestValidateUserCompanyRequired(t *testing.T) {
	for _, role := range []string{"ROLE_USER", "ROLE_COMPANY_ADMIN"} {
		result := ValidateUser(UserInput{Name: "John Doe", Role: role}, superAdmin())

		require.False(t, result.Valid(), "role %s without company must fail", role)
		assert.Contains(t, result.Violations, Violation{Field: "company", Message: MsgNotBlank})
	}
}

func TestValidateUserCompanyForbiddenForSuperAdmin(t *testing.T) {
	companyID := int64(3)

	result := ValidateUser(UserInput{
		Name:      "John Doe",
		Role:      "ROLE_SUPER_ADMIN",
		CompanyID: &companyID,
	}, superAdmin())

	require.False(t, result.Valid())
	assert.Contains(t, result.Violations, Violation{Field: "company", Message: MsgShouldBeNull})
}

func TestValidateUserCollectsAllViolations(t *testing.T) {
	result := ValidateUser(UserInput{Name: "jo", Role: "ROLE_USER"}, companyAdmin())

	assert.True(t, result.Has("name"))
	assert.True(t, result.Has("company"))
	assert.GreaterOrEqual(t, len(result.Violations), 3, "short + format + missing company")
}

func TestValidateUserIdempotent(t *testing.T) {
	in := UserInput{Name: "jo", Role: "ROLE_SUPER_ADMIN"}
	acting := companyAdmin()

	first := ValidateUser(in, acting)
	second := ValidateUser(in, acting)

	assert.Equal(t, first.Violations, second.Violations)
}
