package httpx

import (
	"context"

	domainauth "github.com/target/kb-assistant-web/internal/domain/auth"
	"github.com/target/kb-assistant-web/internal/service"
)

type clientKey struct{}

type clientIDKey struct{}

type sessionKey struct{}

// SetClientInContext stores the browser client's session bundle in the context.
func SetClientInContext(ctx context.Context, c *service.ClientSession) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

// ClientFromContext returns the browser client bound by ClientIdentity, or nil.
func ClientFromContext(ctx context.Context) *service.ClientSession {
	if c, ok := ctx.Value(clientKey{}).(*service.ClientSession); ok {
		return c
	}
	return nil
}

// SetClientIDInContext stores the browser client id.
func SetClientIDInContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientIDKey{}, id)
}

// ClientIDFromContext returns the browser client id bound by ClientIdentity.
func ClientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(clientIDKey{}).(string)
	return id
}

// SetSessionInContext stores the auth snapshot a guard decided on.
func SetSessionInContext(ctx context.Context, s domainauth.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the auth snapshot stored by a guard.
func SessionFromContext(ctx context.Context) (domainauth.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(domainauth.Session)
	return s, ok
}

// currentSession prefers the guard's snapshot and falls back to the live client state.
func currentSession(ctx context.Context) domainauth.Session {
	if s, ok := SessionFromContext(ctx); ok {
		return s
	}
	if c := ClientFromContext(ctx); c != nil && c.Auth != nil {
		return c.Auth.Snapshot()
	}
	return domainauth.Session{Status: domainauth.StatusUnknown}
}
