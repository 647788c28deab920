package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/roster/pkg/auth"
	"github.com/platinummonkey/roster/pkg/directory"
	"github.com/platinummonkey/roster/pkg/httputil"
	"github.com/platinummonkey/roster/pkg/rbac"
	"github.com/platinummonkey/roster/pkg/validation"
)

// mockService is a mock implementation of directory.Service for testing
type mockService struct {
	listCompaniesFunc func(ctx context.Context) ([]*directory.Company, error)
	getCompanyFunc    func(ctx context.Context, id int64) (*directory.Company, error)
	createCompanyFunc func(ctx context.Context, in validation.CompanyInput) (*directory.Company, error)
	listUsersFunc     func(ctx context.Context, acting *auth.Principal, filter directory.UserFilter) ([]*directory.User, error)
	getUserFunc       func(ctx context.Context, acting *auth.Principal, id int64) (*directory.User, error)
	createUserFunc    func(ctx context.Context, acting *auth.Principal, in validation.UserInput) (*directory.User, error)
	deleteUserFunc    func(ctx context.Context, id int64) error
	getUserByNameFunc func(ctx context.Context, name string) (*directory.User, error)
}

func (m *mockService) ListCompanies(ctx context.Context) ([]*directory.Company, error) {
	if m.listCompaniesFunc != nil {
		return m.listCompaniesFunc(ctx)
	}
	return []*directory.Company{}, nil
}

func (m *mockService) GetCompany(ctx context.Context, id int64) (*directory.Company, error) {
	if m.getCompanyFunc != nil {
		return m.getCompanyFunc(ctx, id)
	}
	return &directory.Company{ID: id}, nil
}

func (m *mockService) CreateCompany(ctx context.Context, in validation.CompanyInput) (*directory.Company, error) {
	if m.createCompanyFunc != nil {
		return m.createCompanyFunc(ctx, in)
	}
	return &directory.Company{ID: 1, Name: in.Name}, nil
}

func (m *mockService) ListUsers(ctx context.Context, acting *auth.Principal, filter directory.UserFilter) ([]*directory.User, error) {
	if m.listUsersFunc != nil {
		return m.listUsersFunc(ctx, acting, filter)
	}
	return []*directory.User{}, nil
}

func (m *mockService) GetUser(ctx context.Context, acting *auth.Principal, id int64) (*directory.User, error) {
	if m.getUserFunc != nil {
		return m.getUserFunc(ctx, acting, id)
	}
	return &directory.User{ID: id, Name: "Ana Lima", Role: auth.RoleUser}, nil
}

func (m *mockService) CreateUser(ctx context.Context, acting *auth.Principal, in validation.UserInput) (*directory.User, error) {
	if m.createUserFunc != nil {
		return m.createUserFunc(ctx, acting, in)
	}
	return &directory.User{ID: 1, Name: in.Name, Role: auth.Role(in.Role), CompanyID: in.CompanyID}, nil
}

func (m *mockService) DeleteUser(ctx context.Context, id int64) error {
	if m.deleteUserFunc != nil {
		return m.deleteUserFunc(ctx, id)
	}
	return nil
}

func (m *mockService) GetUserByName(ctx context.Context, name string) (*directory.User, error) {
	if m.getUserByNameFunc != nil {
		return m.getUserByNameFunc(ctx, name)
	}
	return nil, directory.ErrNotFound
}

func (m *mockService) PrincipalByUserID(ctx context.Context, userID int64) (*auth.Principal, error) {
	return nil, directory.ErrNotFound
}

// newTestRouter registers the company and user handlers behind a bare gate,
// the way the server does, without the auth middleware; tests inject the
// principal directly into the request context.
func newTestRouter(svc directory.Service) *mux.Router {
	router := mux.NewRouter()
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteMethodNotAllowed(w, "Method not allowed.")
	})
	api := router.PathPrefix("/api").Subrouter()
	gate := rbac.NewGate()
	NewCompanyHandlers(svc, nil).RegisterRoutes(api, gate)
	NewUserHandlers(svc, nil).RegisterRoutes(api, gate)
	return router
}

func doRequest(t *testing.T, router *mux.Router, method, path string, principal *auth.Principal, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, path, reqBody)
	if principal != nil {
		req = req.WithContext(auth.ContextWithPrincipal(req.Context(), principal))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func principalUser(companyID int64) *auth.Principal {
	return &auth.Principal{UserID: 10, Name: "Plain User", Role: auth.RoleUser, CompanyID: &companyID}
}

func principalCompanyAdmin(companyID int64) *auth.Principal {
	return &auth.Principal{UserID: 11, Name: "Company Admin", Role: auth.RoleCompanyAdmin, CompanyID: &companyID}
}

func principalSuperAdmin() *auth.Principal {
	return &auth.Principal{UserID: 12, Name: "Super Admin", Role: auth.RoleSuperAdmin}
}
