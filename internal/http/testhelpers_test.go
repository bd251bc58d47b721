package httpx

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/publicsuffix"

	"github.com/target/kb-assistant-web/internal/adapters/memory"
	"github.com/target/kb-assistant-web/internal/apiclient"
	"github.com/target/kb-assistant-web/internal/service"
)

// fakeBackend is a scripted knowledge-base API.
type fakeBackend struct {
	mu     sync.Mutex
	calls  map[string]int
	bodies map[string][]byte
	routes map[string]http.HandlerFunc
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	b := &fakeBackend{calls: map[string]int{}, bodies: map[string][]byte{}, routes: map[string]http.HandlerFunc{}}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	body, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.calls[key]++
	b.bodies[key] = body
	h := b.routes[key]
	b.mu.Unlock()
	if h == nil {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Not Found"}`)
		return
	}
	h(w, r)
}

func (b *fakeBackend) handle(key string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[key] = h
}

func (b *fakeBackend) count(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[key]
}

func (b *fakeBackend) body(key string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.bodies[key])
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

// app is a running front end wired to a fake backend.
type app struct {
	t       *testing.T
	backend *fakeBackend
	tokens  *memory.TokenStore
	reg     *service.ClientRegistry
	srv     *httptest.Server
	client  *http.Client
}

type appOption func(*RouterServices)

func newApp(t *testing.T, opts ...appOption) *app {
	t.Helper()
	if _, err := os.Stat(TemplatePathFromTest); err != nil {
		t.Skipf("templates not available: %v", err)
	}
	backend, bsrv := newFakeBackend(t)
	backend.handle("POST /auth/login", reply(http.StatusOK, `{"token":"t1","user":{"username":"admin","full_name":"Ada Admin"}}`))
	backend.handle("GET /auth/me", reply(http.StatusOK, `{"user":{"username":"admin","full_name":"Ada Admin"}}`))

	tokens := memory.NewTokenStore()
	reg := service.NewClientRegistry(service.ClientRegistryConfig{
		Build: service.NewClientSessionBuilder(service.ClientSessionDeps{
			API:    apiclient.New(apiclient.Options{BaseURL: bsrv.URL}),
			Tokens: tokens,
		}),
	})

	svcs := RouterServices{
		Registry:       reg,
		ResolveWait:    time.Second,
		MaxUploadBytes: 1 << 20,
		TemplateFS:     os.DirFS(TemplatePathFromTest),
		StaticFS:       os.DirFS("../../frontend/static"),
	}
	for _, o := range opts {
		o(&svcs)
	}
	h, err := NewRouter(svcs)
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	require.NoError(t, err)
	return &app{
		t:       t,
		backend: backend,
		tokens:  tokens,
		reg:     reg,
		srv:     srv,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (a *app) do(req *http.Request) (*http.Response, string) {
	a.t.Helper()
	resp, err := a.client.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp, string(b)
}

func (a *app) get(path string, headers ...string) (*http.Response, string) {
	a.t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.srv.URL+path, nil)
	require.NoError(a.t, err)
	req.Header.Set("Accept", "text/html")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return a.do(req)
}

// post submits a form with the CSRF token taken from the cookie jar.
func (a *app) post(path string, form url.Values, headers ...string) (*http.Response, string) {
	a.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if form.Get(DefaultCSRFFormField) == "" {
		form.Set(DefaultCSRFFormField, a.cookie(DefaultCSRFCookieName))
	}
	req, err := http.NewRequest(http.MethodPost, a.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return a.do(req)
}

func (a *app) cookie(name string) string {
	u, _ := url.Parse(a.srv.URL)
	for _, c := range a.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// login primes the cookies and signs in as admin.
func (a *app) login() {
	a.t.Helper()
	a.get("/login")
	resp, _ := a.post("/login", url.Values{"username": {"admin"}, "password": {"admin123"}})
	require.Equal(a.t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(a.t, "/chat", resp.Header.Get("Location"))
}

func (a *app) session() *service.ClientSession {
	a.t.Helper()
	id := a.cookie(DefaultClientCookieName)
	require.NotEmpty(a.t, id, "no client cookie")
	return a.reg.Get(id)
}
