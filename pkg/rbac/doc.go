// Package rbac contains the role policy and the authorization gate.
//
// The policy is a set of pure functions over the closed auth.Role enum:
// which roles may invoke which operation, which roles a principal may grant,
// and which validation groups apply to a target role. The gate evaluates the
// per-operation admission table centrally, as HTTP middleware, before any
// query scoping or write validation runs. A gate denial short-circuits the
// request; the scoper and validator never see it.
//
// Tenant narrowing of reads is deliberately not the gate's job: read
// operations are admitted for every authenticated role and restricted later
// by pkg/tenancy, so an out-of-scope item read degrades to a not-found
// instead of leaking existence through a 403.
package rbac
