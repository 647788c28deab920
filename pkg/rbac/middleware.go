package rbac

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/roster/pkg/auth"
	"github.com/platinummonkey/roster/pkg/httputil"
)

// AccessDeniedMessage is the body returned on every gate denial. It is
// deliberately uniform so the response does not reveal which rule matched.
const AccessDeniedMessage = "Access denied."

// DecisionRecorder receives gate denials for the audit trail
type DecisionRecorder interface {
	RecordDenial(r *http.Request, principal *auth.Principal, resource Resource, op Operation)
}

// Gate enforces the per-operation admission table as HTTP middleware
type Gate struct {
	denials  *prometheus.CounterVec
	recorder DecisionRecorder
}

// GateOption configures a Gate
type GateOption func(*Gate)

// WithDenialCounter wires a prometheus counter labelled
// (resource, operation, role) that is incremented on every denial
func WithDenialCounter(c *prometheus.CounterVec) GateOption {
	return func(g *Gate) { g.denials = c }
}

// WithDecisionRecorder wires an audit recorder for denials
func WithDecisionRecorder(rec DecisionRecorder) GateOption {
	return func(g *Gate) { g.recorder = rec }
}

// NewGate creates a new authorization gate
func NewGate(opts ...GateOption) *Gate {
	g := &Gate{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Require creates middleware admitting only principals whose role may
// invoke the operation. Anonymous requests get 401; authenticated but
// disallowed principals get 403. Either way the wrapped handler never runs.
func (g *Gate) Require(resource Resource, op Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.PrincipalFromContext(r.Context())
			if principal == nil {
				g.deny(r, nil, resource, op)
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			if !Allows(principal.Role, resource, op) {
				g.deny(r, principal, resource, op)
				httputil.WriteForbidden(w, AccessDeniedMessage)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (g *Gate) deny(r *http.Request, principal *auth.Principal, resource Resource, op Operation) {
	if g.denials != nil {
		role := "anonymous"
		if principal != nil {
			role = principal.Role.String()
		}
		g.denials.WithLabelValues(string(resource), string(op), role).Inc()
	}
	if g.recorder != nil {
		g.recorder.RecordDenial(r, principal, resource, op)
	}
}
