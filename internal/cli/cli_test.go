package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct {
	mu     sync.Mutex
	calls  map[string]int
	bodies map[string]string
	auth   map[string]string
}

func newBackend(t *testing.T) (*backend, string) {
	t.Helper()
	b := &backend{calls: map[string]int{}, bodies: map[string]string{}, auth: map[string]string{}}
	mux := http.NewServeMux()
	reply := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, body)
		}
	}
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["password"] != "admin123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Invalid username or password"}`)
			return
		}
		reply(`{"token":"tok-1","user":{"username":"admin","full_name":"Ada Admin"}}`)(w, r)
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		reply(`{"user":{"username":"admin","full_name":"Ada Admin"}}`)(w, r)
	})
	mux.HandleFunc("POST /auth/register", reply(`{"username":"bob"}`))
	mux.HandleFunc("POST /chat", reply(`{"answer":"Use the **VPN portal**.","session_id":"s-1"}`))
	mux.HandleFunc("GET /rbac/list_roles", reply(`{"roles":[{"code":"admin","name":"Administrator","is_system":1}]}`))
	mux.HandleFunc("GET /admin/stats", reply(`{"totalUsers":1200,"totalRoles":3,"totalKBs":42,"totalPermissions":17}`))
	mux.HandleFunc("GET /kb/list", reply(`[{"doc_id":"d1","original_filename":"guide.pdf","visibility":"public","chunk_count":4},{"doc_id":"d2","original_filename":"secret.pdf","visibility":"private","chunk_count":1}]`))
	mux.HandleFunc("POST /kb/ingest", reply(`{"doc_id":"d9","chunk_count":2}`))
	mux.HandleFunc("DELETE /kb/{id}/delete", reply(`{}`))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		key := r.Method + " " + r.URL.Path
		b.mu.Lock()
		b.calls[key]++
		b.bodies[key] = string(body)
		b.auth[key] = r.Header.Get("Authorization")
		b.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return b, srv.URL
}

func (b *backend) count(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[key]
}

type harness struct {
	t         *testing.T
	url       string
	tokenFile string
}

func newHarness(t *testing.T) (*harness, *backend) {
	t.Helper()
	b, url := newBackend(t)
	return &harness{t: t, url: url, tokenFile: filepath.Join(t.TempDir(), "token")}, b
}

func (h *harness) run(args ...string) (string, string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand(Options{In: strings.NewReader(""), Out: &out, Err: &errOut})
	root.SetArgs(append([]string{"--api-url", h.url, "--token-file", h.tokenFile}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func (h *harness) login() {
	h.t.Helper()
	_, _, err := h.run("login", "-u", "admin", "-p", "admin123")
	require.NoError(h.t, err)
}

func TestLoginStoresTokenAndStatusReadsIt(t *testing.T) {
	h, _ := newHarness(t)

	out, _, err := h.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in.")

	_, errOut, err := h.run("login", "-u", "admin", "-p", "admin123")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Signed in as Ada Admin")

	raw, err := os.ReadFile(h.tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", strings.TrimSpace(string(raw)))

	out, _, err = h.run("status", "--json")
	require.NoError(t, err)
	assert.NotContains(t, out, "tok-1")
	var snap map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, "authenticated", snap["status"])

	_, _, err = h.run("logout")
	require.NoError(t, err)
	_, err = os.Stat(h.tokenFile)
	assert.True(t, os.IsNotExist(err))
}

func TestLoginFailure(t *testing.T) {
	h, _ := newHarness(t)

	_, _, err := h.run("login", "-u", "admin", "-p", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid username or password")

	_, _, err = h.run("login")
	require.Error(t, err, "missing credentials without a terminal")
}

func TestCommandsRequireSession(t *testing.T) {
	h, b := newHarness(t)

	for _, args := range [][]string{{"chat", "hi"}, {"roles", "list"}, {"docs", "list"}, {"stats"}} {
		_, _, err := h.run(args...)
		assert.ErrorIs(t, err, errNotSignedIn, args)
	}
	assert.Zero(t, b.count("POST /chat"))
}

func TestChat(t *testing.T) {
	h, b := newHarness(t)
	h.login()

	out, _, err := h.run("chat", "How", "do", "I", "connect?")
	require.NoError(t, err)
	assert.Contains(t, out, "VPN portal")
	assert.JSONEq(t, `{"text":"How do I connect?"}`, b.bodies["POST /chat"])
	assert.Equal(t, "Bearer tok-1", b.auth["POST /chat"])

	_, _, err = h.run("chat", "   ")
	require.Error(t, err)
}

func TestRolesAndStats(t *testing.T) {
	h, _ := newHarness(t)
	h.login()

	out, _, err := h.run("roles", "list", "--json")
	require.NoError(t, err)
	var roles []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &roles))
	require.Len(t, roles, 1)
	assert.Equal(t, "admin", roles[0]["code"])

	out, _, err = h.run("stats")
	require.NoError(t, err)
	assert.Contains(t, out, "1200")
	assert.Contains(t, out, "42")
}

func TestDocs(t *testing.T) {
	h, b := newHarness(t)
	h.login()

	out, _, err := h.run("docs", "list", "--visibility", "private")
	require.NoError(t, err)
	assert.Contains(t, out, "secret.pdf")
	assert.NotContains(t, out, "guide.pdf")

	path := filepath.Join(t.TempDir(), "handbook.md")
	require.NoError(t, os.WriteFile(path, []byte("# Handbook"), 0o600))
	out, _, err = h.run("docs", "upload", "--visibility", "private", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Uploaded d9 (2 chunks).")
	assert.Contains(t, b.bodies["POST /kb/ingest"], "handbook.md")

	_, _, err = h.run("docs", "upload", "--visibility", "team", path)
	require.Error(t, err)

	_, _, err = h.run("docs", "delete", "d1")
	require.ErrorContains(t, err, "--yes")
	assert.Zero(t, b.count("DELETE /kb/d1/delete"))

	_, _, err = h.run("docs", "delete", "d1", "--yes")
	require.NoError(t, err)
	assert.Equal(t, 1, b.count("DELETE /kb/d1/delete"))
}

func TestRegisterFromFlags(t *testing.T) {
	h, b := newHarness(t)

	_, _, err := h.run("register", "--username", "bob", "--password", "short")
	require.Error(t, err)
	assert.Zero(t, b.count("POST /auth/register"), "invalid input must not reach the backend")

	out, _, err := h.run("register", "--username", "bob", "--password", "secret1",
		"--confirm-password", "secret1", "--email", "bob@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Account bob created.")
	assert.Equal(t, 1, b.count("POST /auth/register"))
	b.mu.Lock()
	body := b.bodies["POST /auth/register"]
	b.mu.Unlock()
	assert.Contains(t, body, `"email":"bob@example.com"`)
	assert.NotContains(t, body, "confirm")
}
