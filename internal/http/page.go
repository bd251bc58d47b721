package httpx

import (
	"bytes"
	"context"
	"errors"
	"html"
	"log/slog"
	"net/http"

	domainauth "github.com/target/kb-assistant-web/internal/domain/auth"
	"github.com/target/kb-assistant-web/internal/domain/guard"
	apperrors "github.com/target/kb-assistant-web/internal/errors"
	"github.com/target/kb-assistant-web/internal/ports"
	"github.com/target/kb-assistant-web/internal/service"
)

const (
	appName           = "KB Assistant"
	errMsgFixBelow    = "Please fix the errors below."
	errMsgRenderPage  = "Something went wrong while rendering this page."
	msgNotFound       = "The page you're looking for doesn't exist."
	msgSessionMissing = "Your browser session could not be established. Reload the page."
)

var errNotFound = errors.New("not found")

// UIHandlers serves browser-facing routes. Per-client services come from the
// request context (see ClientIdentity).
type UIHandlers struct {
	T              *TemplateRenderer
	Clients        ClientConfig
	MaxUploadBytes int64
	IsDev          bool
	Logger         *slog.Logger
}

func (h *UIHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// PageMeta is the layout metadata of a page.
type PageMeta struct {
	Title       string
	PageTitle   string
	CurrentPage string
}

func metaFor(page, pageTitle string) PageMeta {
	return PageMeta{Title: pageTitle + " - " + appName, PageTitle: pageTitle, CurrentPage: page}
}

// basePageData builds the layout fields every page needs. Queued notices are
// drained here, so each notice is shown exactly once.
func basePageData(r *http.Request, meta PageMeta) map[string]any {
	sess := currentSession(r.Context())
	data := map[string]any{
		"Title":           meta.Title,
		"PageTitle":       meta.PageTitle,
		"CurrentPage":     meta.CurrentPage,
		"IsAdminPage":     isAdminPage(meta.CurrentPage),
		"IsAuthenticated": sess.Authenticated(),
		"CSRFToken":       GetCSRFToken(r),
		"Notices":         []ports.Notice(nil),
	}
	if sess.User != nil {
		data["User"] = sess.User
	}
	if c := ClientFromContext(r.Context()); c != nil && c.Inbox != nil {
		data["Notices"] = c.Inbox.Drain()
	}
	return data
}

// renderPage renders the full layout, or for htmx the content plus an
// out-of-band header title.
func (h *UIHandlers) renderPage(w http.ResponseWriter, r *http.Request, data map[string]any) {
	if !WantsPartial(r) {
		if err := h.T.RenderFull(w, r, data); err != nil {
			h.renderTemplateFailure(w, r, err)
		}
		return
	}

	title, _ := data["Title"].(string)
	pageTitle, _ := data["PageTitle"].(string)
	page, _ := data["CurrentPage"].(string)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	SetHXTrigger(w, "nav:activate", map[string]string{"path": r.URL.Path})
	if _, err := w.Write([]byte(`<title>` + html.EscapeString(title) + `</title>` +
		`<h1 id="header-title" class="header-title" hx-swap-oob="outerHTML">` + html.EscapeString(pageTitle) + `</h1>`)); err != nil {
		h.logger().Error("failed to write partial header", "error", err)
		return
	}
	if err := h.T.executeTo(w, ContentTemplateFor(page), data); err != nil {
		h.logger().ErrorContext(r.Context(), "partial content render failed", "error", err, "page", page)
		return
	}
	if err := h.T.executeTo(w, "notices", data["Notices"]); err != nil {
		h.logger().ErrorContext(r.Context(), "partial notices render failed", "error", err)
	}
}

func (h *UIHandlers) renderTemplateFailure(w http.ResponseWriter, r *http.Request, err error) {
	h.logger().ErrorContext(r.Context(), "page render failed", "error", err, "path", r.URL.Path)
	if h.IsDev {
		http.Error(w, errMsgRenderPage+"\n\n"+err.Error(), http.StatusInternalServerError)
		return
	}
	http.Error(w, errMsgRenderPage, http.StatusInternalServerError)
}

// renderErrorPage renders the standalone error layout with the given status.
func (h *UIHandlers) renderErrorPage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	sess := currentSession(r.Context())
	data := map[string]any{
		"Title":           http.StatusText(status) + " - " + appName,
		"Code":            status,
		"Message":         msg,
		"IsAuthenticated": sess.Authenticated(),
		"ShowLogin":       !sess.Authenticated(),
	}
	var buf bytes.Buffer
	if h.T == nil || h.T.executeTo(&buf, "error-layout", data) != nil {
		http.Error(w, msg, status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// NotFound serves an HTML 404 for browsers and JSON for API clients.
func (h *UIHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	if !IsBrowserRequest(r) {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errNotFound})
		return
	}
	h.renderErrorPage(w, r, http.StatusNotFound, msgNotFound)
}

// clientOr500 returns the request's client bundle or answers 500.
func (h *UIHandlers) clientOr500(w http.ResponseWriter, r *http.Request) *service.ClientSession {
	c := ClientFromContext(r.Context())
	if c == nil {
		h.logger().ErrorContext(r.Context(), "handler without client identity", "path", r.URL.Path)
		h.renderErrorPage(w, r, http.StatusInternalServerError, msgSessionMissing)
	}
	return c
}

// backendCtx detaches backend calls from request cancellation; the API
// client's own timeout still applies.
func backendCtx(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// sessionLost redirects to the login page when a backend 401 ended the
// session during this request.
func sessionLost(w http.ResponseWriter, r *http.Request, c *service.ClientSession) bool {
	if c.Auth.Status() != domainauth.StatusAnonymous {
		return false
	}
	redirect(w, r, guard.LoginPath)
	return true
}

// actionOutcome describes a finished admin form submission.
type actionOutcome struct {
	Err      error
	Success  string
	Redirect string
}

// finishAction completes a post/redirect/get cycle: the outcome is queued as a
// notice and shown by the page the browser lands on.
func (h *UIHandlers) finishAction(w http.ResponseWriter, r *http.Request, out actionOutcome) {
	c := ClientFromContext(r.Context())
	if c == nil {
		h.renderErrorPage(w, r, http.StatusInternalServerError, msgSessionMissing)
		return
	}
	if out.Err != nil {
		if sessionLost(w, r, c) {
			return
		}
		h.logger().WarnContext(r.Context(), "admin action failed",
			"path", r.URL.Path, "field", apperrors.GetField(out.Err), "error", out.Err)
		c.Inbox.Notify(r.Context(), ports.Notice{Kind: ports.NoticeError, Message: service.UserMessage(out.Err)})
	} else if out.Success != "" {
		c.Inbox.Notify(r.Context(), ports.Notice{Kind: ports.NoticeSuccess, Message: out.Success})
	}
	redirect(w, r, out.Redirect)
}
