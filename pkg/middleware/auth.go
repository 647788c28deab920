// Package middleware holds the HTTP middleware chain: request ids,
// bearer-token authentication, and the redis-backed rate limiter. Route
// admission itself lives in pkg/rbac; this package only establishes who is
// calling.
package middleware

import (
	"net/http"
	"strings"

	"github.com/platinummonkey/roster/pkg/auth"
	"github.com/platinummonkey/roster/pkg/httputil"
)

// AuthMiddleware resolves bearer tokens into principals
type AuthMiddleware struct {
	resolver *auth.Resolver
	optional bool // if true, anonymous requests pass through without a principal
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(resolver *auth.Resolver, optional bool) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver, optional: optional}
}

// Handler wraps an HTTP handler with bearer-token authentication. The
// resolved principal rides the request context; downstream gates decide what
// it may do.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		principal, err := m.resolver.Resolve(r.Context(), parts[1])
		if err != nil {
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), principal)))
	})
}
