package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/kb-assistant-web/internal/domain/auth"
	"github.com/target/kb-assistant-web/internal/domain/guard"
)

// pendingApp returns an app whose client has a persisted token while /auth/me
// blocks until release is closed.
func pendingApp(t *testing.T) (*app, chan struct{}) {
	t.Helper()
	a := newApp(t, func(s *RouterServices) { s.ResolveWait = 20 * time.Millisecond })
	release := make(chan struct{})
	a.backend.handle("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		reply(http.StatusOK, `{"user":{"username":"admin","full_name":"Ada Admin"}}`)(w, r)
	})
	t.Cleanup(func() {
		select {
		case <-release:
		default:
			close(release)
		}
	})

	id := uuid.NewString()
	u, err := url.Parse(a.srv.URL)
	require.NoError(t, err)
	a.client.Jar.SetCookies(u, []*http.Cookie{{Name: DefaultClientCookieName, Value: id, Path: "/"}})
	require.NoError(t, a.tokens.ForClient(id).Set(context.Background(), "persisted"))
	return a, release
}

func TestGuard_LoadingWhileResolving(t *testing.T) {
	a, release := pendingApp(t)

	resp, body := a.get("/chat")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Refresh"))
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.NotContains(t, body, "Ada Admin")

	resp, _ = a.get("/chat", "Hx-Request", "true")
	assert.Equal(t, "true", resp.Header.Get("Hx-Refresh"))

	resp, body = a.get("/api/session", "Accept", "application/json")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
	assert.Contains(t, body, "session_resolving")

	// Public-only pages wait as well so a signed-in user never sees the login form flash.
	resp, _ = a.get("/login")
	assert.Equal(t, "1", resp.Header.Get("Refresh"))

	close(release)
	require.Eventually(t, func() bool {
		return a.session().Auth.Status() == domainauth.StatusAuthenticated
	}, 2*time.Second, 10*time.Millisecond)

	resp, body = a.get("/chat")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Refresh"))
	assert.Contains(t, body, "Ada Admin")
	assert.Equal(t, 1, a.backend.count("GET /auth/me"), "resolution runs once per client")
}

func TestGuard_RejectedTokenIsCleared(t *testing.T) {
	a, release := pendingApp(t)
	close(release)
	a.backend.handle("GET /auth/me", reply(http.StatusUnauthorized, `{"detail":"expired"}`))

	resp, _ := a.get("/chat")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	tok, err := a.tokens.ForClient(a.cookie(DefaultClientCookieName)).Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestGuard_WithoutClientIs500(t *testing.T) {
	h := Guard(guard.Protected, GuardConfig{})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next must not run")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
