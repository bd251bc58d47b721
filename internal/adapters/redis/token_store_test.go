package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/kb-assistant-web/internal/ports"
)

type fixedInspector struct {
	claims ports.TokenClaims
	ok     bool
}

func (f fixedInspector) Inspect(string) (ports.TokenClaims, bool) { return f.claims, f.ok }

func newStore(t *testing.T, inspector ports.TokenInspector) (*TokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewTokenStore(TokenStoreOptions{
		Client:     client,
		Prefix:     "test:token:",
		DefaultTTL: time.Hour,
		Inspector:  inspector,
	}), mr
}

func TestTokenStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, nil)
	ts := s.ForClient("client-a")

	got, err := ts.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got, "missing key reads as empty token")

	require.NoError(t, ts.Set(ctx, "tok-1"))
	got, err = ts.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got)
	assert.Equal(t, time.Hour, mr.TTL("test:token:client-a"))

	require.NoError(t, ts.Clear(ctx))
	got, err = ts.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTokenStore_ClientsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, nil)

	require.NoError(t, s.ForClient("a").Set(ctx, "token-a"))
	got, err := s.ForClient("b").Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTokenStore_TTLFromClaims(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, fixedInspector{ok: true, claims: ports.TokenClaims{ExpiresAt: time.Now().Add(10 * time.Minute)}})

	require.NoError(t, s.ForClient("c").Set(ctx, "jwt"))
	ttl := mr.TTL("test:token:c")
	assert.LessOrEqual(t, ttl, 10*time.Minute)
	assert.Greater(t, ttl, 9*time.Minute)
}

func TestTokenStore_LongLivedClaimsCappedByDefaultTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, fixedInspector{ok: true, claims: ports.TokenClaims{ExpiresAt: time.Now().Add(30 * 24 * time.Hour)}})

	require.NoError(t, s.ForClient("g").Set(ctx, "jwt"))
	assert.Equal(t, time.Hour, mr.TTL("test:token:g"))
}

func TestTokenStore_RejectsExpiredToken(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, fixedInspector{ok: true, claims: ports.TokenClaims{ExpiresAt: time.Now().Add(-time.Minute)}})

	err := s.ForClient("d").Set(ctx, "old")
	require.ErrorIs(t, err, ErrExpiredToken)
	assert.False(t, mr.Exists("test:token:d"))
}

func TestTokenStore_EmptySetClears(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, nil)
	ts := s.ForClient("e")

	require.NoError(t, ts.Set(ctx, "x"))
	require.NoError(t, ts.Set(ctx, ""))
	assert.False(t, mr.Exists("test:token:e"))
}

func TestTokenStore_ExpiresWithRedisTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, nil)
	ts := s.ForClient("f")

	require.NoError(t, ts.Set(ctx, "x"))
	mr.FastForward(2 * time.Hour)

	got, err := ts.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}
