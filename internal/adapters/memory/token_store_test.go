package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenStore_PerClient(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore()

	require.NoError(t, s.ForClient("a").Set(ctx, "ta"))
	require.NoError(t, s.ForClient("b").Set(ctx, "tb"))

	got, err := s.ForClient("a").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ta", got)
	assert.Equal(t, 2, s.Len())

	require.NoError(t, s.ForClient("a").Clear(ctx))
	got, _ = s.ForClient("a").Get(ctx)
	assert.Empty(t, got)
	assert.Equal(t, 1, s.Len())
}

func TestSlot_EmptySetClears(t *testing.T) {
	ctx := context.Background()
	slot := NewSlot()
	require.NoError(t, slot.Set(ctx, "x"))
	require.NoError(t, slot.Set(ctx, ""))
	got, _ := slot.Get(ctx)
	assert.Empty(t, got)
}
