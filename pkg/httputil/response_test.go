package httputil

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, 200, map[string]string{"status": "ok"}))

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestWriteViolations(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteViolations(rec, []Violation{
		{Field: "name", Message: "This value should not be blank."},
		{Field: "company", Message: "This value should be null."},
	})

	assert.Equal(t, 422, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation failed", resp.Error)
	require.Len(t, resp.Violations, 2)
	assert.Equal(t, "name", resp.Violations[0].Field)
}

func TestWriteTypeMismatch(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteTypeMismatch(rec, `The type of the "role" attribute must be "string", "integer" given.`)

	assert.Equal(t, 400, rec.Code)
	assert.Contains(t, rec.Body.String(), "must be")
}

func TestStatusHelpers(t *testing.T) {
	tests := []struct {
		write func(*httptest.ResponseRecorder)
		code  int
	}{
		{func(r *httptest.ResponseRecorder) { WriteBadRequest(r, "bad") }, 400},
		{func(r *httptest.ResponseRecorder) { WriteUnauthorized(r, "who") }, 401},
		{func(r *httptest.ResponseRecorder) { WriteForbidden(r, "no") }, 403},
		{func(r *httptest.ResponseRecorder) { WriteNotFound(r, "gone") }, 404},
		{func(r *httptest.ResponseRecorder) { WriteTooManyRequests(r, "slow down") }, 429},
		{func(r *httptest.ResponseRecorder) { WriteNoContent(r) }, 204},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		tt.write(rec)
		assert.Equal(t, tt.code, rec.Code)
	}
}
