package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/kb-assistant-web/internal/domain/guard"
)

// DefaultResolveWait bounds how long a guarded request waits for session resolution.
const DefaultResolveWait = 1500 * time.Millisecond

// GuardConfig configures Guard.
type GuardConfig struct {
	// ResolveWait bounds the wait for a pending resolution before the loading page is shown.
	ResolveWait time.Duration
	Renderer    *TemplateRenderer
	Logger      *slog.Logger
}

// Guard applies guard.Decide to the client's session. Render passes through
// with the snapshot in the context; Loading shows a page that refreshes itself;
// Redirect sends the browser away (or answers 401 JSON on /api/ paths).
func Guard(kind guard.Kind, cfg GuardConfig) func(http.Handler) http.Handler {
	wait := cfg.ResolveWait
	if wait <= 0 {
		wait = DefaultResolveWait
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := ClientFromContext(r.Context())
			if client == nil || client.Auth == nil {
				logger.ErrorContext(r.Context(), "guard without client identity", "path", r.URL.Path)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), wait)
			client.Auth.Init(ctx)
			cancel()

			snap := client.Auth.Snapshot()
			decision := guard.Decide(kind, snap.Status)
			switch decision.Outcome {
			case guard.Render:
				next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), snap)))
			case guard.Loading:
				renderLoading(w, r, cfg.Renderer)
			case guard.Redirect:
				if isAPIPath(r.URL.Path) {
					WriteError(w, ErrorParams{
						Code:    http.StatusUnauthorized,
						ErrCode: "authentication_required",
						Err:     errors.New("authentication required"),
					})
					return
				}
				redirect(w, r, decision.Target)
			}
		})
	}
}

// renderLoading shows a neutral indicator and asks the browser to retry shortly.
func renderLoading(w http.ResponseWriter, r *http.Request, t *TemplateRenderer) {
	if isAPIPath(r.URL.Path) {
		w.Header().Set("Retry-After", "1")
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "session_resolving",
			Err:     errors.New("session is still being resolved"),
		})
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	if IsHTMX(r) {
		SetHXRefresh(w)
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Header().Set("Refresh", "1")
	if t == nil || t.RenderLoading(w, r, map[string]any{"Title": "Loading - KB Assistant"}) != nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Loading..."))
	}
}
