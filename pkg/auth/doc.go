// Package auth provides authentication primitives for the roster service:
// the Role enumeration, the Principal resolved for every request, opaque
// API token generation and persistence, and the bearer-token resolver used
// by the HTTP middleware.
//
// Authorization decisions do not live here; they are made by pkg/rbac from
// the Principal this package produces.
package auth
