package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const (
	// TokenPrefix identifies roster tokens
	TokenPrefix = "roster_"
	// TokenLength is the total length of random bytes (32 bytes = 256 bits)
	TokenLength = 32
)

// ErrTokenNotFound reports that no live token matched a revoke request
var ErrTokenNotFound = errors.New("auth: token not found")

// Token represents a stored API token. Only the SHA-256 hash is persisted;
// the raw token is shown once at issue time.
type Token struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	TokenHash   string     `json:"-"`
	TokenPrefix string     `json:"token_prefix"`
	Name        string     `json:"name"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

// Expired reports whether the token is past its expiry
func (t *Token) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}

// Revoked reports whether the token has been revoked
func (t *Token) Revoked() bool {
	return t.RevokedAt != nil
}

// TokenGenerator generates and validates API tokens
type TokenGenerator struct{}

// NewTokenGenerator creates a new token generator
func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{}
}

// GenerateToken creates a new API token.
// Format: roster_<base64url(32 random bytes)>
func (tg *TokenGenerator) GenerateToken() (token string, tokenHash string, tokenPrefix string, err error) {
	randomBytes := make([]byte, TokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	encodedToken := base64.RawURLEncoding.EncodeToString(randomBytes)
	fullToken := TokenPrefix + encodedToken

	hash := sha256.Sum256([]byte(fullToken))
	hashStr := hex.EncodeToString(hash[:])

	// First 8 chars after "roster_" identify the token in listings
	prefix := TokenPrefix
	if len(encodedToken) >= 8 {
		prefix = TokenPrefix + encodedToken[:8]
	}

	return fullToken, hashStr, prefix, nil
}

// HashToken computes the SHA-256 hash of a token for lookup
func (tg *TokenGenerator) HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ValidateTokenFormat checks if a token has the correct format
func (tg *TokenGenerator) ValidateTokenFormat(token string) error {
	if !strings.HasPrefix(token, TokenPrefix) {
		return fmt.Errorf("token must start with %q", TokenPrefix)
	}

	encodedPart := strings.TrimPrefix(token, TokenPrefix)
	if len(encodedPart) == 0 {
		return fmt.Errorf("token is too short")
	}

	if _, err := base64.RawURLEncoding.DecodeString(encodedPart); err != nil {
		return fmt.Errorf("invalid token encoding: %w", err)
	}

	return nil
}

// TokenStore persists API tokens
type TokenStore struct {
	db *sql.DB
}

// NewTokenStore creates a new token store
func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

// Create inserts a new token row
func (s *TokenStore) Create(ctx context.Context, token *Token) error {
	query := `
		INSERT INTO api_tokens (user_id, token_hash, token_prefix, name, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		token.UserID, token.TokenHash, token.TokenPrefix, token.Name, token.ExpiresAt, now,
	).Scan(&token.ID)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	token.CreatedAt = now
	return nil
}

// GetByHash retrieves a token by its hash
func (s *TokenStore) GetByHash(ctx context.Context, hash string) (*Token, error) {
	query := `
		SELECT id, user_id, token_hash, token_prefix, name, expires_at, last_used_at, created_at, revoked_at
		FROM api_tokens
		WHERE token_hash = $1
	`
	var t Token
	err := s.db.QueryRowContext(ctx, query, hash).Scan(
		&t.ID, &t.UserID, &t.TokenHash, &t.TokenPrefix, &t.Name,
		&t.ExpiresAt, &t.LastUsedAt, &t.CreatedAt, &t.RevokedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("token not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	return &t, nil
}

// Revoke marks a token as revoked
func (s *TokenStore) Revoke(ctx context.Context, tokenID int64) error {
	query := `UPDATE api_tokens SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`
	if _, err := s.db.ExecContext(ctx, query, time.Now(), tokenID); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// RevokeOwned revokes a token only if it belongs to the given user.
// Returns ErrTokenNotFound when no live token matches, so callers cannot
// distinguish another user's token from a nonexistent one.
func (s *TokenStore) RevokeOwned(ctx context.Context, userID, tokenID int64) error {
	query := `UPDATE api_tokens SET revoked_at = $1 WHERE id = $2 AND user_id = $3 AND revoked_at IS NULL`
	res, err := s.db.ExecContext(ctx, query, time.Now(), tokenID, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read revoke result: %w", err)
	}
	if affected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// TouchLastUsed records the last use of a token. Best effort; errors are
// returned but callers may ignore them.
func (s *TokenStore) TouchLastUsed(ctx context.Context, tokenID int64) error {
	query := `UPDATE api_tokens SET last_used_at = $1 WHERE id = $2`
	if _, err := s.db.ExecContext(ctx, query, time.Now(), tokenID); err != nil {
		return fmt.Errorf("failed to touch token: %w", err)
	}
	return nil
}

// DeleteExpired removes tokens whose expiry passed before the cutoff.
// Used by the retention sweeper.
func (s *TokenStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM api_tokens WHERE expires_at IS NOT NULL AND expires_at < $1`
	res, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return res.RowsAffected()
}

// TokenManager ties generation and persistence together
type TokenManager struct {
	generator *TokenGenerator
	store     *TokenStore
	ttl       time.Duration
}

// NewTokenManager creates a new token manager. A zero ttl issues
// non-expiring tokens.
func NewTokenManager(store *TokenStore, ttl time.Duration) *TokenManager {
	return &TokenManager{
		generator: NewTokenGenerator(),
		store:     store,
		ttl:       ttl,
	}
}

// Issue creates and persists a token for the given user, returning the raw
// token exactly once.
func (tm *TokenManager) Issue(ctx context.Context, userID int64, name string) (string, *Token, error) {
	raw, hash, prefix, err := tm.generator.GenerateToken()
	if err != nil {
		return "", nil, err
	}

	token := &Token{
		UserID:      userID,
		TokenHash:   hash,
		TokenPrefix: prefix,
		Name:        name,
	}
	if tm.ttl > 0 {
		expires := time.Now().Add(tm.ttl)
		token.ExpiresAt = &expires
	}

	if err := tm.store.Create(ctx, token); err != nil {
		return "", nil, err
	}
	return raw, token, nil
}

// Validate checks a raw bearer token and returns the stored token row
func (tm *TokenManager) Validate(ctx context.Context, raw string) (*Token, error) {
	if err := tm.generator.ValidateTokenFormat(raw); err != nil {
		return nil, err
	}

	token, err := tm.store.GetByHash(ctx, tm.generator.HashToken(raw))
	if err != nil {
		return nil, err
	}
	if token.Revoked() {
		return nil, fmt.Errorf("token has been revoked")
	}
	if token.Expired(time.Now()) {
		return nil, fmt.Errorf("token has expired")
	}
	return token, nil
}

// RevokeOwned revokes one of the user's own tokens. The resolver cache may
// keep a revoked token resolving until its TTL lapses.
func (tm *TokenManager) RevokeOwned(ctx context.Context, userID, tokenID int64) error {
	return tm.store.RevokeOwned(ctx, userID, tokenID)
}
