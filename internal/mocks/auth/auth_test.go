package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/kb-assistant-web/internal/ports"
)

func TestMockTokenStore_Defaults(t *testing.T) {
	s := &MockTokenStore{}
	ctx := context.Background()

	tok, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.Set(ctx, "t1"))
	tok, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t1", tok)
	assert.Equal(t, 1, s.Sets())

	require.NoError(t, s.Clear(ctx))
	tok, _ = s.Get(ctx)
	assert.Empty(t, tok)
}

func TestMockTokenStore_Fail(t *testing.T) {
	s := &MockTokenStore{Fail: true}
	ctx := context.Background()

	_, err := s.Get(ctx)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, s.Set(ctx, "t"), ErrStoreUnavailable)
	assert.ErrorIs(t, s.Clear(ctx), ErrStoreUnavailable)
}

func TestMockTokenStore_CustomFunc(t *testing.T) {
	boom := errors.New("boom")
	s := &MockTokenStore{SetFunc: func(context.Context, string) error { return boom }}

	assert.ErrorIs(t, s.Set(context.Background(), "t"), boom)
	assert.Zero(t, s.Sets())
}

func TestMemoryTokenStores_IsolatesClients(t *testing.T) {
	f := NewMemoryTokenStores()
	ctx := context.Background()

	require.NoError(t, f.ForClient("a").Set(ctx, "ta"))
	tok, err := f.ForClient("b").Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	tok, err = f.ForClient("a").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ta", tok)
	assert.Same(t, f.Store("a"), f.Store("a"))
}

func TestStaticInspector(t *testing.T) {
	now := time.Now()
	in := StaticInspector{Claims: map[string]ports.TokenClaims{"jwt": ExpiredClaims("admin", now)}}

	c, ok := in.Inspect("jwt")
	require.True(t, ok)
	assert.True(t, c.Expired(now))
	assert.Equal(t, "admin", c.Username)

	_, ok = in.Inspect("opaque")
	assert.False(t, ok)
}

func TestRecordingNotifier(t *testing.T) {
	r := &RecordingNotifier{}
	assert.Equal(t, ports.Notice{}, r.Last())

	r.Notify(context.Background(), ports.Notice{Kind: ports.NoticeInfo, Message: "one"})
	r.Notify(context.Background(), ports.Notice{Kind: ports.NoticeError, Message: "two"})

	assert.Len(t, r.Notices(), 2)
	assert.Equal(t, "two", r.Last().Message)
}
