package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// PrincipalLookup loads the principal attributes for a user id. Implemented
// by the directory service; declared here so auth does not depend on the
// persistence package.
type PrincipalLookup interface {
	PrincipalByUserID(ctx context.Context, userID int64) (*Principal, error)
}

// Resolver turns a raw bearer token into a Principal. Resolutions are
// cached briefly so hot callers do not hit the database on every request;
// the TTL bounds how long a revoked token keeps working.
type Resolver struct {
	tokens *TokenManager
	lookup PrincipalLookup
	cache  *expirable.LRU[string, *Principal]
}

// ResolverCacheSize is the number of token hashes kept in the LRU
const ResolverCacheSize = 4096

// NewResolver creates a new principal resolver. A zero cacheTTL disables
// caching.
func NewResolver(tokens *TokenManager, lookup PrincipalLookup, cacheTTL time.Duration) *Resolver {
	r := &Resolver{
		tokens: tokens,
		lookup: lookup,
	}
	if cacheTTL > 0 {
		r.cache = expirable.NewLRU[string, *Principal](ResolverCacheSize, nil, cacheTTL)
	}
	return r
}

// Resolve validates the raw token and returns the authenticated principal
func (r *Resolver) Resolve(ctx context.Context, rawToken string) (*Principal, error) {
	var cacheKey string
	if r.cache != nil {
		cacheKey = r.tokens.generator.HashToken(rawToken)
		if p, ok := r.cache.Get(cacheKey); ok {
			return p, nil
		}
	}

	token, err := r.tokens.Validate(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	principal, err := r.lookup.PrincipalByUserID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load principal: %w", err)
	}

	if r.cache != nil {
		r.cache.Add(cacheKey, principal)
	}
	return principal, nil
}

// Invalidate drops any cached principal for the given raw token
func (r *Resolver) Invalidate(rawToken string) {
	if r.cache != nil {
		r.cache.Remove(r.tokens.generator.HashToken(rawToken))
	}
}
