package validation

import (
	"strings"
	"unicode/utf8"
)

const (
	// CompanyNameMinLength is the minimum company name length in characters
	CompanyNameMinLength = 5
	// CompanyNameMaxLength is the maximum company name length in characters
	CompanyNameMaxLength = 100
)

// CompanyInput is a pending Company write
type CompanyInput struct {
	Name string `json:"name"`
}

// ValidateCompany checks a pending company payload. Name uniqueness is not
// checked here: it is enforced by the store's unique constraint and surfaced
// by the directory service as a violation on the same field, so races cannot
// slip past an advisory pre-check.
func ValidateCompany(in CompanyInput) *Result {
	result := &Result{}

	if strings.TrimSpace(in.Name) == "" {
		result.Add("name", MsgNotBlank)
		return result
	}

	length := utf8.RuneCountInString(in.Name)
	if length < CompanyNameMinLength {
		result.Add("name", MsgTooShort(CompanyNameMinLength))
	}
	if length > CompanyNameMaxLength {
		result.Add("name", MsgTooLong(CompanyNameMaxLength))
	}

	return result
}
