package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/target/kb-assistant-web/internal/service"
)

// DefaultClientCookieName names the opaque browser client id cookie.
const DefaultClientCookieName = "kb_client"

const clientCookieMaxAge = 30 * 24 * time.Hour

// ClientConfig configures ClientIdentity.
type ClientConfig struct {
	CookieName   string
	CookieDomain string
	Registry     *service.ClientRegistry
}

func (cfg ClientConfig) cookieName() string {
	if cfg.CookieName == "" {
		return DefaultClientCookieName
	}
	return cfg.CookieName
}

func (cfg ClientConfig) setCookie(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.cookieName(),
		Value:    id,
		Path:     "/",
		Domain:   cfg.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(clientCookieMaxAge.Seconds()),
	})
}

// ClientIdentity binds every request to a browser client. A missing or
// malformed cookie gets a fresh uuid; the client's session bundle is placed in
// the request context.
func ClientIdentity(cfg ClientConfig) func(http.Handler) http.Handler {
	name := cfg.cookieName()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := cookieValue(r, name)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
				cfg.setCookie(w, r, id)
			}

			client := cfg.Registry.Get(id)
			ctx := SetClientIDInContext(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(SetClientInContext(ctx, client)))
		})
	}
}

// pendingClient is a session built under an id the browser has not been given yet.
type pendingClient struct {
	id      string
	session *service.ClientSession
}

// newPendingClient builds a session under a fresh id. Sign-in happens on it so a
// client id chosen before authentication never becomes the authenticated one.
func (cfg ClientConfig) newPendingClient() pendingClient {
	id := uuid.NewString()
	return pendingClient{id: id, session: cfg.Registry.Get(id)}
}

// adopt hands the pending id to the browser and retires the previous client,
// including any token still stored under it. Queued notices move along.
func (cfg ClientConfig) adopt(ctx context.Context, w http.ResponseWriter, r *http.Request, p pendingClient) {
	cfg.setCookie(w, r, p.id)

	prevID := ClientIDFromContext(r.Context())
	if prevID == "" || prevID == p.id {
		return
	}
	if prev, ok := cfg.Registry.Remove(prevID); ok {
		for _, n := range prev.Inbox.Drain() {
			p.session.Inbox.Notify(ctx, n)
		}
		prev.Auth.Discard(ctx)
	}
}

// abandon drops a pending client that never signed in.
func (cfg ClientConfig) abandon(p pendingClient) {
	cfg.Registry.Remove(p.id)
}
