package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenClaims_Expired(t *testing.T) {
	now := time.Now()
	assert.False(t, TokenClaims{}.Expired(now), "zero expiry never expires")
	assert.True(t, TokenClaims{ExpiresAt: now}.Expired(now))
	assert.True(t, TokenClaims{ExpiresAt: now.Add(-time.Second)}.Expired(now))
	assert.False(t, TokenClaims{ExpiresAt: now.Add(time.Minute)}.Expired(now))
}

func TestNotifierFunc(t *testing.T) {
	var got Notice
	var n Notifier = NotifierFunc(func(_ context.Context, in Notice) { got = in })
	n.Notify(context.Background(), Notice{Kind: NoticeInfo, Message: "hi"})
	assert.Equal(t, Notice{Kind: NoticeInfo, Message: "hi"}, got)
}
