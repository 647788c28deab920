// Package api is the HTTP surface of the service. Requests pass through
// request-id assignment, panic recovery, bearer authentication, rate
// limiting, and the per-route authorization gate before reaching a handler.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/roster/pkg/audit"
	"github.com/platinummonkey/roster/pkg/auth"
	"github.com/platinummonkey/roster/pkg/directory"
	"github.com/platinummonkey/roster/pkg/httputil"
	"github.com/platinummonkey/roster/pkg/middleware"
	"github.com/platinummonkey/roster/pkg/observability"
	"github.com/platinummonkey/roster/pkg/rbac"
)

// ServerOption configures a Server
type ServerOption func(*Server)

// WithRateLimiter wires the redis-backed rate limiter into the chain
func WithRateLimiter(limiter *middleware.RateLimitMiddleware) ServerOption {
	return func(s *Server) { s.rateLimiter = limiter }
}

// WithMetrics wires per-route HTTP metrics and the gate denial counter
func WithMetrics(metrics *observability.Metrics) ServerOption {
	return func(s *Server) { s.metrics = metrics }
}

// WithAuditRecorder wires the audit trail into handlers and the gate
func WithAuditRecorder(recorder audit.Recorder, denials rbac.DecisionRecorder) ServerOption {
	return func(s *Server) {
		s.recorder = recorder
		s.denials = denials
	}
}

// WithOIDC enables the OIDC login flow
func WithOIDC(provider *auth.OIDCProvider) ServerOption {
	return func(s *Server) { s.oidc = provider }
}

// WithTracing wraps the router in otelhttp instrumentation
func WithTracing() ServerOption {
	return func(s *Server) { s.tracing = true }
}

// Server owns the router and the middleware chain
type Server struct {
	service  directory.Service
	resolver *auth.Resolver
	tokens   *auth.TokenManager
	logger   *observability.Logger

	rateLimiter *middleware.RateLimitMiddleware
	metrics     *observability.Metrics
	recorder    audit.Recorder
	denials     rbac.DecisionRecorder
	oidc        *auth.OIDCProvider
	tracing     bool

	handler http.Handler
}

// NewServer builds the full router
func NewServer(service directory.Service, resolver *auth.Resolver, tokens *auth.TokenManager, logger *observability.Logger, opts ...ServerOption) *Server {
	s := &Server{
		service:  service,
		resolver: resolver,
		tokens:   tokens,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.buildHandler()
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) buildHandler() http.Handler {
	var gateOpts []rbac.GateOption
	if s.metrics != nil {
		gateOpts = append(gateOpts, rbac.WithDenialCounter(s.metrics.AccessDeniedTotal))
	}
	if s.denials != nil {
		gateOpts = append(gateOpts, rbac.WithDecisionRecorder(s.denials))
	}
	gate := rbac.NewGate(gateOpts...)

	root := mux.NewRouter()
	// Subrouters propagate method mismatches here; without this handler
	// mux reports them as plain 404s.
	root.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteMethodNotAllowed(w, "Method not allowed.")
	})

	// Public routes: no bearer token required.
	public := root.PathPrefix("/api").Subrouter()

	// Authenticated routes: bearer token resolved before the gate runs.
	authed := root.PathPrefix("/api").Subrouter()
	authMiddleware := middleware.NewAuthMiddleware(s.resolver, false)
	authed.Use(mux.MiddlewareFunc(authMiddleware.Handler))
	if s.rateLimiter != nil {
		authed.Use(mux.MiddlewareFunc(s.rateLimiter.Handler))
		public.Use(mux.MiddlewareFunc(s.rateLimiter.Handler))
	}

	NewCompanyHandlers(s.service, s.recorder).RegisterRoutes(authed, gate)
	NewUserHandlers(s.service, s.recorder).RegisterRoutes(authed, gate)
	NewAuthHandlers(s.tokens, s.resolver, s.service, s.oidc, s.recorder).RegisterRoutes(authed, public)

	if s.metrics != nil {
		root.Use(s.metricsMiddleware)
	}

	var handler http.Handler = root
	handler = middleware.RequestID(handler)
	handler = observability.PanicRecoveryMiddleware(s.logger)(handler)
	handler = s.loggerMiddleware(handler)
	if s.tracing {
		handler = otelhttp.NewHandler(handler, "roster-api")
	}
	return handler
}

// loggerMiddleware seeds the request context with the base logger so
// handlers can call observability.FromContext.
func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(observability.WithLogger(r.Context(), s.logger)))
	})
}

// metricsMiddleware labels requests with the matched route template
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if template, err := route.GetPathTemplate(); err == nil {
				path = template
			}
		}
		s.metrics.InstrumentHandler(path, next).ServeHTTP(w, r)
	})
}
