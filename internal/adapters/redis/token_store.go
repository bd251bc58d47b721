package redis

// Package redis provides Redis-based adapters for persisted client tokens.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/kb-assistant-web/internal/ports"
)

var (
	_ ports.TokenStoreFactory = (*TokenStore)(nil)
	_ ports.TokenStore        = clientTokenStore{}
)

// ErrExpiredToken is returned by Set when the token's expiry claim is already in the past.
var ErrExpiredToken = errors.New("token is expired")

// TokenStoreOptions groups dependencies for TokenStore.
type TokenStoreOptions struct {
	Client redis.UniversalClient
	// Prefix namespaces keys; the client id is appended.
	Prefix string
	// DefaultTTL is the longest a key lives. A token's expiry claim can only shorten it.
	DefaultTTL time.Duration
	// Inspector reads expiry claims. Optional.
	Inspector ports.TokenInspector
}

// TokenStore keeps one bearer token per browser client.
// Keys expire after DefaultTTL or at the token's exp claim, whichever is sooner.
type TokenStore struct {
	client     redis.UniversalClient
	prefix     string
	defaultTTL time.Duration
	inspector  ports.TokenInspector
}

// NewTokenStore creates a Redis-backed token store.
func NewTokenStore(opts TokenStoreOptions) *TokenStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "kbweb:token:"
	}
	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenStore{
		client:     opts.Client,
		prefix:     prefix,
		defaultTTL: ttl,
		inspector:  opts.Inspector,
	}
}

// ForClient returns the store bound to clientID.
//
//nolint:ireturn // the port is the contract callers depend on.
func (s *TokenStore) ForClient(clientID string) ports.TokenStore {
	return clientTokenStore{store: s, key: s.prefix + clientID}
}

func (s *TokenStore) ttlFor(token string) time.Duration {
	if s.inspector == nil {
		return s.defaultTTL
	}
	claims, ok := s.inspector.Inspect(token)
	if !ok || claims.ExpiresAt.IsZero() {
		return s.defaultTTL
	}
	return min(s.defaultTTL, time.Until(claims.ExpiresAt))
}

type clientTokenStore struct {
	store *TokenStore
	key   string
}

func (c clientTokenStore) Get(ctx context.Context) (string, error) {
	token, err := c.store.client.Get(ctx, c.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis get token: %w", err)
	}
	return token, nil
}

func (c clientTokenStore) Set(ctx context.Context, token string) error {
	if token == "" {
		return c.Clear(ctx)
	}
	ttl := c.store.ttlFor(token)
	if ttl <= 0 {
		return ErrExpiredToken
	}
	if err := c.store.client.Set(ctx, c.key, token, ttl).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	return nil
}

func (c clientTokenStore) Clear(ctx context.Context) error {
	if err := c.store.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("redis delete token: %w", err)
	}
	return nil
}
