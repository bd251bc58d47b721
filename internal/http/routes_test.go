package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/kb-assistant-web/internal/domain/auth"
)

func TestRoutes_LoginChatLogoutFlow(t *testing.T) {
	a := newApp(t)

	resp, _ := a.get("/chat")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	a.login()

	resp, body := a.get("/chat")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Ada Admin")
	assert.Contains(t, body, "Signed in as Ada Admin")

	tok, err := a.tokens.ForClient(a.cookie(DefaultClientCookieName)).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t1", tok)

	resp, _ = a.post("/logout", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp, _ = a.get("/chat")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	tok, err = a.tokens.ForClient(a.cookie(DefaultClientCookieName)).Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestRoutes_PublicOnlyRedirectsAuthenticated(t *testing.T) {
	a := newApp(t)
	a.login()

	for _, p := range []string{"/login", "/register"} {
		resp, _ := a.get(p)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, p)
		assert.Equal(t, "/chat", resp.Header.Get("Location"), p)
	}
}

func TestRoutes_LoginIssuesNewClientID(t *testing.T) {
	a := newApp(t)
	const planted = "11111111-2222-4333-8444-555555555555"
	u, err := url.Parse(a.srv.URL)
	require.NoError(t, err)
	a.client.Jar.SetCookies(u, []*http.Cookie{{Name: DefaultClientCookieName, Value: planted, Path: "/"}})

	a.login()

	issued := a.cookie(DefaultClientCookieName)
	require.NotEmpty(t, issued)
	assert.NotEqual(t, planted, issued)

	tok, err := a.tokens.ForClient(issued).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t1", tok)
	tok, err = a.tokens.ForClient(planted).Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok)

	resp, body := a.get("/chat")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Signed in as Ada Admin")

	// A second browser holding the pre-login id stays signed out.
	other := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	req, err := http.NewRequest(http.MethodGet, a.srv.URL+"/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/html")
	req.AddCookie(&http.Cookie{Name: DefaultClientCookieName, Value: planted})
	res, err := other.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/login", res.Header.Get("Location"))
}

func TestRoutes_FailedLoginKeepsClientID(t *testing.T) {
	a := newApp(t)
	a.backend.handle("POST /auth/login", reply(http.StatusUnauthorized, `{"detail":"Invalid username or password"}`))
	a.get("/login")
	before := a.cookie(DefaultClientCookieName)
	clients := a.reg.Len()

	a.post("/login", url.Values{"username": {"admin"}, "password": {"wrong"}})

	assert.Equal(t, before, a.cookie(DefaultClientCookieName))
	assert.Equal(t, clients, a.reg.Len())
}

func TestRoutes_HTMXRedirectUsesHeader(t *testing.T) {
	a := newApp(t)

	resp, _ := a.get("/admin", "Hx-Request", "true")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Hx-Redirect"))
}

func TestRoutes_LoginFailureShownInline(t *testing.T) {
	a := newApp(t)
	a.backend.handle("POST /auth/login", reply(http.StatusUnauthorized, `{"detail":"Invalid username or password"}`))

	a.get("/login")
	resp, body := a.post("/login", url.Values{"username": {"admin"}, "password": {"wrong"}})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Invalid username or password")
	assert.Equal(t, domainauth.StatusAnonymous, a.session().Auth.Status())
}

func TestRoutes_LoginMissingFieldsMakeNoCall(t *testing.T) {
	a := newApp(t)

	a.get("/login")
	_, body := a.post("/login", url.Values{"username": {"  "}, "password": {""}})

	assert.Contains(t, body, "Username is required.")
	assert.Contains(t, body, "Password is required.")
	assert.Zero(t, a.backend.count("POST /auth/login"))
}

func TestRoutes_CSRFRequired(t *testing.T) {
	a := newApp(t)

	a.get("/login")
	resp, _ := a.post("/login", url.Values{
		"username":           {"admin"},
		"password":           {"admin123"},
		DefaultCSRFFormField: {"forged"},
	})

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, a.backend.count("POST /auth/login"))
}

func TestRoutes_RegisterValidationMakesNoCall(t *testing.T) {
	a := newApp(t)

	a.get("/register")
	_, body := a.post("/register", url.Values{
		"username":         {"bob"},
		"password":         {"abc"},
		"confirm_password": {"abc"},
	})

	assert.Contains(t, body, "Password must be at least 6 characters.")
	assert.Zero(t, a.backend.count("POST /auth/register"))
}

func TestRoutes_RegisterSuccessMovesToLogin(t *testing.T) {
	a := newApp(t)
	a.backend.handle("POST /auth/register", reply(http.StatusOK, `{"message":"ok"}`))

	a.get("/register")
	resp, body := a.post("/register", url.Values{
		"username":         {"bob"},
		"password":         {"secret1"},
		"confirm_password": {"secret1"},
		"email":            {"bob@example.com"},
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2; url=/login", resp.Header.Get("Refresh"))
	assert.Contains(t, body, "was created")

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(a.backend.body("POST /auth/register")), &sent))
	assert.Equal(t, "bob", sent["username"])
	assert.NotContains(t, sent, "confirm_password")
}

func TestRoutes_ChatHTMXRendersMarkdownSafely(t *testing.T) {
	a := newApp(t)
	a.backend.handle("POST /chat", reply(http.StatusOK,
		`{"answer":"**Hello** <script>alert(1)</script>","session_id":"s1","active_route":"rag"}`))
	a.login()

	resp, body := a.post("/chat/messages", url.Values{"text": {"Hi there"}}, "Hx-Request", "true")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Hi there")
	assert.Contains(t, body, "<strong>Hello</strong>")
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Equal(t, "s1", a.session().Chat.SessionID())
	assert.JSONEq(t, `{"text":"Hi there"}`, a.backend.body("POST /chat"))
}

func TestRoutes_ChatBackendFailureBecomesErrorMessage(t *testing.T) {
	a := newApp(t)
	a.backend.handle("POST /chat", reply(http.StatusInternalServerError, `{"detail":"model unavailable"}`))
	a.login()

	resp, _ := a.post("/chat/messages", url.Values{"text": {"Hi"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body := a.get("/chat")
	assert.Contains(t, body, "message-error")
	assert.Contains(t, body, "model unavailable")
}

func TestRoutes_AdminUnauthorizedEndsSession(t *testing.T) {
	a := newApp(t)
	a.backend.handle("GET /rbac/list_roles", reply(http.StatusUnauthorized, `{"detail":"token revoked"}`))
	a.login()

	resp, _ := a.get("/admin/roles")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	_, body := a.get("/login")
	assert.Contains(t, body, "Your session has expired")
}

func TestRoutes_AdminLoadErrorShown(t *testing.T) {
	a := newApp(t)
	a.backend.handle("GET /admin/stats", reply(http.StatusInternalServerError, `{"detail":"stats offline"}`))
	a.backend.handle("GET /rbac/list_roles", reply(http.StatusOK, `{"roles":[]}`))
	a.backend.handle("GET /rbac/list_permissions", reply(http.StatusOK, `{"permissions":[]}`))
	a.login()

	resp, body := a.get("/admin")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "stats offline")
}

func TestRoutes_RoleSaveValidatesBeforeCalling(t *testing.T) {
	a := newApp(t)
	a.backend.handle("GET /rbac/list_roles", reply(http.StatusOK, `{"roles":[{"code":"admin","name":"Admin"}]}`))
	a.login()

	_, body := a.post("/admin/roles", url.Values{"code": {"Bad Code"}, "name": {""}})
	assert.Contains(t, body, "Role code has an invalid format.")
	assert.Contains(t, body, "Role name is required.")
	assert.Zero(t, a.backend.count("POST /rbac/set_roles"))

	a.backend.handle("POST /rbac/set_roles", reply(http.StatusOK, `{}`))
	resp, _ := a.post("/admin/roles", url.Values{"code": {"kb_editor"}, "name": {"Editor"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.JSONEq(t, `{"code":"kb_editor","name":"Editor"}`, a.backend.body("POST /rbac/set_roles"))

	_, body = a.get("/admin/roles")
	assert.Contains(t, body, "Role kb_editor saved.")
}

func TestRoutes_UserRolesSave(t *testing.T) {
	a := newApp(t)
	a.backend.handle("PUT /rbac/users/alice/roles", reply(http.StatusOK, `{}`))
	a.login()

	resp, _ := a.post("/admin/users/alice/roles", url.Values{"role_codes": {"admin", " viewer ", "admin"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/users?username=alice", resp.Header.Get("Location"))

	assert.JSONEq(t, `{"role_codes":["admin","viewer"]}`, a.backend.body("PUT /rbac/users/alice/roles"))
}

func TestRoutes_KBUploadSingleFile(t *testing.T) {
	a := newApp(t)
	a.backend.handle("POST /kb/ingest", reply(http.StatusOK, `{"doc_id":"d1","chunk_count":3}`))
	a.backend.handle("GET /kb/list", reply(http.StatusOK, `[{"doc_id":"d1","original_filename":"guide.pdf","visibility":"private","chunk_count":3}]`))
	a.login()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("visibility", "private"))
	fw, err := mw.CreateFormFile("files", "guide.pdf")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("%PDF-1.4 test"))
	require.NoError(t, mw.Close())

	target := a.srv.URL + "/admin/kb/upload?" + DefaultCSRFFormField + "=" + url.QueryEscape(a.cookie(DefaultCSRFCookieName))
	req, err := http.NewRequest(http.MethodPost, target, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "text/html")
	resp, _ := a.do(req)

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, 1, a.backend.count("POST /kb/ingest"))
	assert.Zero(t, a.backend.count("POST /kb/ingest/batch"))
	sent := a.backend.body("POST /kb/ingest")
	assert.Contains(t, sent, "guide.pdf")
	assert.Contains(t, sent, "private")

	_, body := a.get("/admin/kb?visibility=private")
	assert.Contains(t, body, "Uploaded d1 (3 chunks).")
	assert.Contains(t, body, "guide.pdf")
}

func TestRoutes_KBActions(t *testing.T) {
	a := newApp(t)
	a.backend.handle("DELETE /kb/d1/delete", reply(http.StatusOK, `{}`))
	a.backend.handle("PUT /kb/d1/update", reply(http.StatusOK, `{}`))
	a.backend.handle("POST /kb/d1/reembed", reply(http.StatusOK, `{}`))
	a.login()

	resp, _ := a.post("/admin/kb/d1/visibility", url.Values{"visibility": {"private"}, "return_to": {"/admin/kb/d1"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/kb/d1", resp.Header.Get("Location"))
	assert.JSONEq(t, `{"visibility":"private"}`, a.backend.body("PUT /kb/d1/update"))

	resp, _ = a.post("/admin/kb/d1/reembed", url.Values{"return_to": {"//evil.example"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/kb", resp.Header.Get("Location"))
	assert.Equal(t, 1, a.backend.count("POST /kb/d1/reembed"))

	resp, _ = a.post("/admin/kb/d1/delete", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, 1, a.backend.count("DELETE /kb/d1/delete"))
}

func TestRoutes_SessionAPI(t *testing.T) {
	a := newApp(t)

	resp, body := a.get("/api/session", "Accept", "application/json")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "authentication_required")

	a.login()
	resp, body = a.get("/api/session", "Accept", "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, "t1")

	var snap domainauth.Session
	require.NoError(t, json.Unmarshal([]byte(body), &snap))
	assert.Equal(t, domainauth.StatusAuthenticated, snap.Status)
	require.NotNil(t, snap.User)
	assert.Equal(t, "admin", snap.User.Username)
}

func TestRoutes_NotFound(t *testing.T) {
	a := newApp(t)

	resp, body := a.get("/no/such/page")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "looking for")

	resp, body = a.get("/api/nothing", "Accept", "application/json")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json"))
	assert.Contains(t, body, `"not_found"`)
}

func TestRoutes_HealthAndStatic(t *testing.T) {
	a := newApp(t)

	resp, body := a.get("/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"ok"`)
	assert.Contains(t, body, `"clients":0`)
	assert.Contains(t, body, `"capacity":10000`)
	assert.Empty(t, a.cookie(DefaultClientCookieName), "health checks must not create clients")

	a.get("/login")
	_, body = a.get("/healthz")
	assert.Contains(t, body, `"clients":1`)
	assert.Contains(t, body, `"created":1`)

	resp, _ = a.get("/static/app.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
