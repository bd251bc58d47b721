package ports

// Package ports defines interfaces (hexagonal ports) for session-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"time"
)

// TokenStore persists the bearer token for exactly one client.
// Get returns "" with a nil error when nothing is stored.
type TokenStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// TokenStoreFactory hands out the store bound to one browser client.
type TokenStoreFactory interface {
	ForClient(clientID string) TokenStore
}

// TokenClaims is the subset of token contents the session layer cares about.
type TokenClaims struct {
	Subject   string
	Username  string
	ExpiresAt time.Time
}

// Expired reports whether the claims carry an expiry at or before now.
func (c TokenClaims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// TokenInspector reads claims from a token without verifying it.
// ok is false when the token is opaque (not a parseable JWT).
type TokenInspector interface {
	Inspect(token string) (claims TokenClaims, ok bool)
}
