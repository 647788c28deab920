package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/roster/pkg/audit"
	"github.com/platinummonkey/roster/pkg/auth"
	"github.com/platinummonkey/roster/pkg/directory"
	"github.com/platinummonkey/roster/pkg/httputil"
	"github.com/platinummonkey/roster/pkg/observability"
	"github.com/platinummonkey/roster/pkg/rbac"
	"github.com/platinummonkey/roster/pkg/validation"
)

// UserHandlers handles user-related HTTP requests
type UserHandlers struct {
	service  directory.Service
	recorder audit.Recorder
}

// NewUserHandlers creates a new UserHandlers
func NewUserHandlers(service directory.Service, recorder audit.Recorder) *UserHandlers {
	return &UserHandlers{service: service, recorder: recorder}
}

// RegisterRoutes registers user routes behind the authorization gate
func (h *UserHandlers) RegisterRoutes(router *mux.Router, gate *rbac.Gate) {
	router.Handle("/users",
		gate.Require(rbac.ResourceUser, rbac.OperationList)(http.HandlerFunc(h.ListUsers))).Methods("GET")
	router.Handle("/users",
		gate.Require(rbac.ResourceUser, rbac.OperationCreate)(http.HandlerFunc(h.CreateUser))).Methods("POST")
	router.Handle("/users/{id}",
		gate.Require(rbac.ResourceUser, rbac.OperationGet)(http.HandlerFunc(h.GetUser))).Methods("GET")
	router.Handle("/users/{id}",
		gate.Require(rbac.ResourceUser, rbac.OperationDelete)(http.HandlerFunc(h.DeleteUser))).Methods("DELETE")
}

// ListUsers lists the users visible to the caller. An optional ?role=
// filter composes with the tenant scope.
func (h *UserHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	acting := auth.PrincipalFromContext(r.Context())

	var filter directory.UserFilter
	if roleParam := r.URL.Query().Get("role"); roleParam != "" {
		role := auth.Role(roleParam)
		filter.Role = &role
	}

	users, err := h.service.ListUsers(r.Context(), acting, filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, users)
}

// GetUser retrieves a user by ID. A user outside the caller's company reads
// as 404, never 403.
func (h *UserHandlers) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		httputil.WriteNotFound(w, "Not found")
		return
	}

	user, err := h.service.GetUser(r.Context(), auth.PrincipalFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

// CreateUser creates a new user
func (h *UserHandlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var input validation.UserInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		writeDecodeError(w, err)
		return
	}

	user, err := h.service.CreateUser(r.Context(), auth.PrincipalFromContext(r.Context()), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := audit.RecordRequest(r.Context(), h.recorder, r, audit.ActionUserCreate,
		"user", strconv.FormatInt(user.ID, 10), audit.StatusSuccess, ""); err != nil {
		observability.FromContext(r.Context()).WithError(err).Warn("failed to record audit entry")
	}
	httputil.WriteCreated(w, user)
}

// DeleteUser removes a user by ID
func (h *UserHandlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		httputil.WriteNotFound(w, "Not found")
		return
	}

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := audit.RecordRequest(r.Context(), h.recorder, r, audit.ActionUserDelete,
		"user", strconv.FormatInt(id, 10), audit.StatusSuccess, ""); err != nil {
		observability.FromContext(r.Context()).WithError(err).Warn("failed to record audit entry")
	}
	httputil.WriteNoContent(w)
}
