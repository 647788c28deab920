package api

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/roster/pkg/audit"
	"github.com/platinummonkey/roster/pkg/auth"
	"github.com/platinummonkey/roster/pkg/directory"
	"github.com/platinummonkey/roster/pkg/httputil"
	"github.com/platinummonkey/roster/pkg/observability"
)

const oidcStateCookie = "roster_oidc_state"

// AuthHandlers handles token issuance and the optional OIDC login flow
type AuthHandlers struct {
	tokens   *auth.TokenManager
	resolver *auth.Resolver
	service  directory.Service
	oidc     *auth.OIDCProvider // nil when OIDC is disabled
	recorder audit.Recorder
}

// NewAuthHandlers creates a new AuthHandlers
func NewAuthHandlers(tokens *auth.TokenManager, resolver *auth.Resolver, service directory.Service, oidc *auth.OIDCProvider, recorder audit.Recorder) *AuthHandlers {
	return &AuthHandlers{
		tokens:   tokens,
		resolver: resolver,
		service:  service,
		oidc:     oidc,
		recorder: recorder,
	}
}

// RegisterRoutes registers token routes on the authenticated router and, if
// OIDC is configured, the login flow on the public router.
func (h *AuthHandlers) RegisterRoutes(authed *mux.Router, public *mux.Router) {
	authed.HandleFunc("/auth/tokens", h.IssueToken).Methods("POST")
	authed.HandleFunc("/auth/tokens/{id}", h.RevokeToken).Methods("DELETE")

	if h.oidc != nil {
		public.HandleFunc("/auth/login", h.Login).Methods("GET")
		public.HandleFunc("/auth/callback", h.Callback).Methods("GET")
	}
}

type issueTokenRequest struct {
	Name string `json:"name"`
}

type issueTokenResponse struct {
	Token     string      `json:"token"`
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	ExpiresAt interface{} `json:"expires_at,omitempty"`
}

// IssueToken creates a new API token for the authenticated caller. The raw
// token appears in this response and nowhere else.
func (h *AuthHandlers) IssueToken(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var req issueTokenRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.Name == "" {
		req.Name = "api"
	}

	raw, token, err := h.tokens.Issue(r.Context(), principal.UserID, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := audit.RecordRequest(r.Context(), h.recorder, r, audit.ActionTokenIssue,
		"token", strconv.FormatInt(token.ID, 10), audit.StatusSuccess, ""); err != nil {
		observability.FromContext(r.Context()).WithError(err).Warn("failed to record audit entry")
	}

	resp := issueTokenResponse{Token: raw, ID: token.ID, Name: token.Name}
	if token.ExpiresAt != nil {
		resp.ExpiresAt = token.ExpiresAt
	}
	httputil.WriteCreated(w, resp)
}

// RevokeToken revokes one of the caller's tokens by id
func (h *AuthHandlers) RevokeToken(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		httputil.WriteNotFound(w, "Not found")
		return
	}

	if err := h.tokens.RevokeOwned(r.Context(), principal.UserID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := audit.RecordRequest(r.Context(), h.recorder, r, audit.ActionTokenRevoke,
		"token", strconv.FormatInt(id, 10), audit.StatusSuccess, ""); err != nil {
		observability.FromContext(r.Context()).WithError(err).Warn("failed to record audit entry")
	}
	httputil.WriteNoContent(w)
}

// Login starts the OIDC authorization code flow
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	state := base64.RawURLEncoding.EncodeToString(stateBytes)

	http.SetCookie(w, &http.Cookie{
		Name:     oidcStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((5 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	h.oidc.InitiateLogin(w, r, state)
}

// Callback finishes the OIDC flow: the verified identity is matched to a
// directory user by name and a fresh API token is issued for it. Identities
// with no matching user are rejected; login never provisions accounts.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(oidcStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		httputil.WriteUnauthorized(w, "state mismatch")
		return
	}

	identity, err := h.oidc.HandleCallback(r.Context(), r)
	if err != nil {
		recordLoginFailure(r, h.recorder, err)
		httputil.WriteUnauthorized(w, "login failed")
		return
	}

	user, err := h.service.GetUserByName(r.Context(), identity.Name)
	if err != nil {
		recordLoginFailure(r, h.recorder, err)
		httputil.WriteUnauthorized(w, "unknown user")
		return
	}

	raw, token, err := h.tokens.Issue(r.Context(), user.ID, "oidc-login")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	entry := &audit.Entry{
		UserID:       &user.ID,
		CompanyID:    user.CompanyID,
		Action:       audit.ActionLogin,
		ResourceType: "token",
		ResourceID:   strconv.FormatInt(token.ID, 10),
		IPAddress:    r.RemoteAddr,
		UserAgent:    r.UserAgent(),
		Status:       audit.StatusSuccess,
	}
	if h.recorder != nil {
		if err := h.recorder.Record(r.Context(), entry); err != nil {
			observability.FromContext(r.Context()).WithError(err).Warn("failed to record audit entry")
		}
	}

	httputil.WriteSuccess(w, issueTokenResponse{Token: raw, ID: token.ID, Name: token.Name})
}

func recordLoginFailure(r *http.Request, recorder audit.Recorder, cause error) {
	if recorder == nil {
		return
	}
	entry := &audit.Entry{
		Action:       audit.ActionLoginFailed,
		ResourceType: "token",
		IPAddress:    r.RemoteAddr,
		UserAgent:    r.UserAgent(),
		Status:       audit.StatusFailure,
		ErrorMessage: cause.Error(),
	}
	_ = recorder.Record(r.Context(), entry)
}
