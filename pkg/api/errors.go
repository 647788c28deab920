package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/roster/pkg/auth"
	"github.com/platinummonkey/roster/pkg/directory"
	"github.com/platinummonkey/roster/pkg/httputil"
	"github.com/platinummonkey/roster/pkg/observability"
	"github.com/platinummonkey/roster/pkg/validation"
)

// writeServiceError maps a directory service error to its HTTP shape.
// Validation failures become 422 violation lists, missing rows become 404,
// everything else is a 500 with the detail kept out of the response.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		violations := make([]httputil.Violation, 0, len(verr.Result.Violations))
		for _, v := range verr.Result.Violations {
			violations = append(violations, httputil.Violation{Field: v.Field, Message: v.Message})
		}
		httputil.WriteViolations(w, violations)
		return
	}

	if errors.Is(err, directory.ErrNotFound) || errors.Is(err, auth.ErrTokenNotFound) {
		httputil.WriteNotFound(w, "Not found")
		return
	}

	observability.FromContext(r.Context()).WithError(err).Error("request failed")
	httputil.WriteInternalError(w, err)
}

// writeDecodeError maps a request body decode failure. Type mismatches get
// the exact attribute/type detail; anything else is a generic 400.
func writeDecodeError(w http.ResponseWriter, err error) {
	var tme *httputil.TypeMismatchError
	if errors.As(err, &tme) {
		httputil.WriteTypeMismatch(w, tme.Error())
		return
	}
	httputil.WriteBadRequest(w, err.Error())
}
