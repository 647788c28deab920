// Package validation implements the write validator: field-level rules for
// pending Company and User writes, evaluated against the acting principal
// before persistence. All violations for a payload are collected and
// surfaced together; validation never mutates state, so re-validating the
// same payload yields the same violation set.
package validation

import "fmt"

// Violation messages. The fixed strings match the API's published error
// vocabulary; tests assert on them verbatim.
const (
	MsgNotBlank     = "This value should not be blank."
	MsgShouldBeNull = "This value should be null."
	MsgNotValid     = "This value is not valid."
	MsgAlreadyUsed  = "This value is already used."
	MsgInvalidRole  = "Choose a valid roles."
	MsgNameFormat   = "requires letters and space only, one uppercase letter required"
)

// MsgTooShort builds the under-length message for a minimum
func MsgTooShort(min int) string {
	return fmt.Sprintf("This value is too short. It should have %d characters or more.", min)
}

// MsgTooLong builds the over-length message for a maximum
func MsgTooLong(max int) string {
	return fmt.Sprintf("This value is too long. It should have %d characters or less.", max)
}

// MsgRoleNotAllowed builds the role-escalation message for a rejected role
func MsgRoleNotAllowed(role string) string {
	return fmt.Sprintf("You are not allowed to set the %s role", role)
}

// Violation is a single field-level failure
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result aggregates the violations for one payload
type Result struct {
	Violations []Violation `json:"violations"`
}

// Add appends a violation
func (r *Result) Add(field, message string) {
	r.Violations = append(r.Violations, Violation{Field: field, Message: message})
}

// Valid reports whether the payload passed every rule
func (r *Result) Valid() bool {
	return len(r.Violations) == 0
}

// Has reports whether any violation was recorded for the field
func (r *Result) Has(field string) bool {
	for _, v := range r.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

// Error carries a failed Result across the service boundary so handlers can
// translate it into a 422 payload.
type Error struct {
	Result *Result
}

func (e *Error) Error() string {
	return fmt.Sprintf("validation failed with %d violation(s)", len(e.Result.Violations))
}

// Failed wraps a result in an Error
func Failed(result *Result) *Error {
	return &Error{Result: result}
}

// SingleViolation builds an Error holding exactly one violation
func SingleViolation(field, message string) *Error {
	r := &Result{}
	r.Add(field, message)
	return Failed(r)
}
