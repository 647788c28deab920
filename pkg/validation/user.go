package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/platinummonkey/roster/pkg/auth"
	"github.com/platinummonkey/roster/pkg/rbac"
)

const (
	// UserNameMinLength is the minimum user name length in characters
	UserNameMinLength = 3
	// UserNameMaxLength is the maximum user name length in characters
	UserNameMaxLength = 100
)

// Letters and spaces only; the uppercase requirement is checked separately
// because RE2 has no lookahead.
var userNamePattern = regexp.MustCompile(`^[A-Za-z ]*$`)

// UserInput is a pending User write as decoded from the transport layer.
// Role arrives as a raw string: membership in the Role enum is itself a
// validation rule, not a decoding concern.
type UserInput struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	CompanyID *int64 `json:"company"`
}

// ValidateUser checks a pending user payload against the acting principal
// and returns every violation at once. The sequence is fixed: name format,
// role presence, role membership, role escalation, then the conditional
// company-presence rules activated by the target role.
func ValidateUser(in UserInput, acting *auth.Principal) *Result {
	result := &Result{}

	validateUserName(in.Name, result)
	validateUserRole(in, acting, result)

	return result
}

func validateUserName(name string, result *Result) {
	if strings.TrimSpace(name) == "" {
		result.Add("name", MsgNotBlank)
		return
	}

	length := utf8.RuneCountInString(name)
	if length < UserNameMinLength {
		result.Add("name", MsgTooShort(UserNameMinLength))
	}
	if length > UserNameMaxLength {
		result.Add("name", MsgTooLong(UserNameMaxLength))
	}

	if !userNamePattern.MatchString(name) || !containsUppercase(name) {
		result.Add("name", MsgNameFormat)
	}
}

func validateUserRole(in UserInput, acting *auth.Principal, result *Result) {
	if in.Role == "" {
		result.Add("role", MsgNotBlank)
		return
	}

	target := auth.Role(in.Role)
	if !target.Valid() {
		result.Add("role", MsgInvalidRole)
		return
	}

	if acting != nil && !rbac.MayAssignRole(acting.Role, target) {
		result.Add("role", MsgRoleNotAllowed(in.Role))
	}

	// Conditional company rules only make sense for a known target role
	groups := rbac.RequiredGroups(target)
	if rbac.HasGroup(groups, rbac.GroupCompanyRequired) && in.CompanyID == nil {
		result.Add("company", MsgNotBlank)
	}
	if rbac.HasGroup(groups, rbac.GroupCompanyForbidden) && in.CompanyID != nil {
		result.Add("company", MsgShouldBeNull)
	}
}

func containsUppercase(s string) bool {
	return strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
}
