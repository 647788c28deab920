package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/roster/pkg/audit"
	"github.com/platinummonkey/roster/pkg/directory"
	"github.com/platinummonkey/roster/pkg/httputil"
	"github.com/platinummonkey/roster/pkg/observability"
	"github.com/platinummonkey/roster/pkg/rbac"
	"github.com/platinummonkey/roster/pkg/validation"
)

// CompanyHandlers handles company-related HTTP requests
type CompanyHandlers struct {
	service  directory.Service
	recorder audit.Recorder
}

// NewCompanyHandlers creates a new CompanyHandlers
func NewCompanyHandlers(service directory.Service, recorder audit.Recorder) *CompanyHandlers {
	return &CompanyHandlers{service: service, recorder: recorder}
}

// RegisterRoutes registers company routes behind the authorization gate
func (h *CompanyHandlers) RegisterRoutes(router *mux.Router, gate *rbac.Gate) {
	router.Handle("/companies",
		gate.Require(rbac.ResourceCompany, rbac.OperationList)(http.HandlerFunc(h.ListCompanies))).Methods("GET")
	router.Handle("/companies",
		gate.Require(rbac.ResourceCompany, rbac.OperationCreate)(http.HandlerFunc(h.CreateCompany))).Methods("POST")
	router.Handle("/companies/{id}",
		gate.Require(rbac.ResourceCompany, rbac.OperationGet)(http.HandlerFunc(h.GetCompany))).Methods("GET")
}

// ListCompanies lists all companies
func (h *CompanyHandlers) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.service.ListCompanies(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, companies)
}

// GetCompany retrieves a company by ID
func (h *CompanyHandlers) GetCompany(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		httputil.WriteNotFound(w, "Not found")
		return
	}

	company, err := h.service.GetCompany(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, company)
}

// CreateCompany creates a new company
func (h *CompanyHandlers) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var input validation.CompanyInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		writeDecodeError(w, err)
		return
	}

	company, err := h.service.CreateCompany(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := audit.RecordRequest(r.Context(), h.recorder, r, audit.ActionCompanyCreate,
		"company", strconv.FormatInt(company.ID, 10), audit.StatusSuccess, ""); err != nil {
		observability.FromContext(r.Context()).WithError(err).Warn("failed to record audit entry")
	}
	httputil.WriteCreated(w, company)
}
