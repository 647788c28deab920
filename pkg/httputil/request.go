package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
)

// MaxBodySize caps request bodies at 1 MiB; directory payloads are tiny
const MaxBodySize = 1 << 20

// TypeMismatchError reports a payload attribute whose JSON type does not
// match the schema. It is distinct from a field validation failure: the
// payload is structurally unusable, so no further field validation runs.
type TypeMismatchError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("The type of the %q attribute must be %q, %q given.", e.Field, e.Expected, e.Actual)
}

// jsonTypeName maps the encoding/json value description onto the name the
// API reports. encoding/json calls every numeric literal "number", so for
// numbers the raw token ending at offset decides between "integer" and
// "number".
func jsonTypeName(value string, body []byte, offset int64) string {
	switch value {
	case "number":
		if isIntegerLiteral(body, offset) {
			return "integer"
		}
		return "number"
	case "bool":
		return "boolean"
	}
	return value
}

var integerLiteral = regexp.MustCompile(`^-?[0-9]+$`)

// isIntegerLiteral reports whether the numeric token ending at offset has no
// fraction or exponent. UnmarshalTypeError.Offset points just past the
// offending value.
func isIntegerLiteral(body []byte, offset int64) bool {
	if offset <= 0 || offset > int64(len(body)) {
		return false
	}
	end := int(offset)
	start := end
	for start > 0 && bytes.IndexByte([]byte("+-.eE0123456789"), body[start-1]) >= 0 {
		start--
	}
	return integerLiteral.Match(body[start:end])
}

// goTypeName maps a Go kind name onto the name the API reports
func goTypeName(kind string) string {
	switch kind {
	case "int", "int32", "int64", "uint", "uint32", "uint64":
		return "integer"
	case "float32", "float64":
		return "number"
	case "bool":
		return "boolean"
	}
	return kind
}

// DecodeJSON decodes a request body into dst. A wrong attribute type comes
// back as *TypeMismatchError; any other malformed body as a plain error.
func DecodeJSON(r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, MaxBodySize))
	if err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if len(body) == 0 {
		return fmt.Errorf("empty request body")
	}

	if err := json.Unmarshal(body, dst); err != nil {
		var ute *json.UnmarshalTypeError
		if errors.As(err, &ute) {
			return &TypeMismatchError{
				Field:    ute.Field,
				Expected: goTypeName(ute.Type.Kind().String()),
				Actual:   jsonTypeName(ute.Value, body, ute.Offset),
			}
		}
		return fmt.Errorf("invalid request body: %w", err)
	}

	return nil
}
