package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/kb-assistant-web/internal/adapters/memory"
	apperrors "github.com/target/kb-assistant-web/internal/errors"
)

type captured struct {
	method string
	path   string
	query  string
	auth   string
	header http.Header
	body   string
}

func newBackend(t *testing.T, status int, respBody string) (*httptest.Server, *[]captured) {
	t.Helper()
	var calls []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		calls = append(calls, captured{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
			header: r.Header.Clone(),
			body:   string(b),
		})
		w.WriteHeader(status)
		_, _ = io.WriteString(w, respBody)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestRequest_EmptyPathMakesNoCall(t *testing.T) {
	srv, calls := newBackend(t, http.StatusOK, `{}`)
	c := New(Options{BaseURL: srv.URL})

	_, err := c.Request(context.Background(), "", RequestConfig{})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.ErrorIs(t, err, ErrEmptyPath)
	assert.Empty(t, *calls)
}

func TestRequest_DefaultsAndBody(t *testing.T) {
	srv, calls := newBackend(t, http.StatusOK, `{"ok":true}`)
	c := New(Options{BaseURL: srv.URL + "/"})

	raw, err := c.Request(context.Background(), "/rbac/list_roles", RequestConfig{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))

	_, err = c.Post(context.Background(), "/chat", map[string]string{"text": "hi"})
	require.NoError(t, err)

	require.Len(t, *calls, 2)
	assert.Equal(t, http.MethodGet, (*calls)[0].method)
	assert.Equal(t, "/rbac/list_roles", (*calls)[0].path)
	assert.Equal(t, "application/json", (*calls)[0].header.Get("Content-Type"))
	assert.Equal(t, http.MethodPost, (*calls)[1].method)
	assert.JSONEq(t, `{"text":"hi"}`, (*calls)[1].body)
}

func TestRequest_TokenReadFreshEachCall(t *testing.T) {
	ctx := context.Background()
	srv, calls := newBackend(t, http.StatusOK, `{}`)
	tokens := memory.NewSlot()
	c := New(Options{BaseURL: srv.URL, Tokens: tokens})

	_, err := c.Get(ctx, "/a")
	require.NoError(t, err)

	require.NoError(t, tokens.Set(ctx, "T1"))
	_, err = c.Get(ctx, "/b")
	require.NoError(t, err)

	require.NoError(t, tokens.Set(ctx, "T2"))
	_, err = c.Get(ctx, "/c")
	require.NoError(t, err)

	require.NoError(t, tokens.Clear(ctx))
	_, err = c.Get(ctx, "/d")
	require.NoError(t, err)

	require.Len(t, *calls, 4)
	assert.Empty(t, (*calls)[0].auth, "no token means no Authorization header at all")
	assert.Equal(t, "Bearer T1", (*calls)[1].auth)
	assert.Equal(t, "Bearer T2", (*calls)[2].auth)
	assert.Empty(t, (*calls)[3].auth)
}

func TestRequest_SkipAuthAndHeaderOverrides(t *testing.T) {
	ctx := context.Background()
	srv, calls := newBackend(t, http.StatusOK, `{}`)
	tokens := memory.NewSlot()
	require.NoError(t, tokens.Set(ctx, "T1"))
	c := New(Options{BaseURL: srv.URL, Tokens: tokens})

	_, err := c.Request(ctx, "/auth/login", RequestConfig{Method: http.MethodPost, SkipAuth: true})
	require.NoError(t, err)
	_, err = c.Request(ctx, "/x", RequestConfig{Headers: map[string]string{"Content-Type": "text/plain", "X-Trace": "1"}})
	require.NoError(t, err)

	assert.Empty(t, (*calls)[0].auth)
	assert.Equal(t, "text/plain", (*calls)[1].header.Get("Content-Type"))
	assert.Equal(t, "1", (*calls)[1].header.Get("X-Trace"))
	assert.Equal(t, "Bearer T1", (*calls)[1].auth)
}

func TestRequest_FailureMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
		code    string
		errCode apperrors.ErrorCode
	}{
		{name: "detail string", status: 400, body: `{"detail":"Username already exists"}`, message: "Username already exists", errCode: apperrors.ErrCodeValidation},
		{name: "detail list", status: 422, body: `{"detail":[{"msg":"field required"},{"msg":"too short"}]}`, message: "field required; too short", errCode: apperrors.ErrCodeValidation},
		{name: "no detail", status: 500, body: `{"error":"x"}`, message: GenericFailureMessage, errCode: apperrors.ErrCodeUpstream},
		{name: "non json", status: 502, body: `<html>bad gateway</html>`, message: GenericFailureMessage, errCode: apperrors.ErrCodeUpstream},
		{name: "machine code", status: 403, body: `{"detail":"nope","code":"perm_denied"}`, message: "nope", code: "perm_denied", errCode: apperrors.ErrCodeForbidden},
		{name: "not found", status: 404, body: ``, message: GenericFailureMessage, errCode: apperrors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newBackend(t, tt.status, tt.body)
			_, err := New(Options{BaseURL: srv.URL}).Get(context.Background(), "/x")

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Error())
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.errCode, apperrors.GetCode(err))
			assert.Equal(t, tt.status, StatusOf(err))
		})
	}
}

func TestRequest_SuccessWithUnparseableBody(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, `not json`)
	_, err := New(Options{BaseURL: srv.URL}).Get(context.Background(), "/x")

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, GenericFailureMessage, apiErr.Message)
}

func TestRequest_EmptySuccessIsNull(t *testing.T) {
	srv, _ := newBackend(t, http.StatusNoContent, ``)
	raw, err := New(Options{BaseURL: srv.URL}).Delete(context.Background(), "/kb/1/delete")
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))
}

func TestRequest_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	_, err := New(Options{BaseURL: base}).Get(context.Background(), "/x")
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, apperrors.IsNetwork(err))
	assert.Zero(t, StatusOf(err))
}

func TestRequest_UnauthorizedHookOnlyWithToken(t *testing.T) {
	ctx := context.Background()
	srv, _ := newBackend(t, http.StatusUnauthorized, `{"detail":"Token expired"}`)
	var fired atomic.Int32
	tokens := memory.NewSlot()
	c := New(Options{BaseURL: srv.URL, Tokens: tokens, OnUnauthorized: func(context.Context) { fired.Add(1) }})

	_, err := c.Get(ctx, "/x")
	require.Error(t, err)
	assert.Zero(t, fired.Load(), "anonymous 401 does not trigger the hook")

	require.NoError(t, tokens.Set(ctx, "T"))
	_, err = c.Get(ctx, "/x")
	require.Error(t, err)
	assert.Equal(t, int32(1), fired.Load())

	_, err = c.WithUnauthorizedHook(nil).Get(ctx, "/x")
	require.Error(t, err)
	assert.Equal(t, int32(1), fired.Load())
}

func TestDo_DecodesTyped(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, `{"answer":"42","session_id":"s1"}`)
	type reply struct {
		Answer    string `json:"answer"`
		SessionID string `json:"session_id"`
	}
	got, err := Do[reply](context.Background(), New(Options{BaseURL: srv.URL}), "/chat", RequestConfig{Method: http.MethodPost, Body: json.RawMessage(`{"text":"q"}`)})
	require.NoError(t, err)
	assert.Equal(t, reply{Answer: "42", SessionID: "s1"}, got)
}

func TestDo_ShapeMismatchIsGenericFailure(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, `[1,2]`)
	_, err := Do[map[string]string](context.Background(), New(Options{BaseURL: srv.URL}), "/x", RequestConfig{})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, GenericFailureMessage, apiErr.Message)
}

func TestUpload_MultipartWithToken(t *testing.T) {
	ctx := context.Background()
	var gotAuth, gotVis, gotName, gotContent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotVis = r.FormValue("visibility")
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		b, _ := io.ReadAll(f)
		gotName, gotContent = hdr.Filename, string(b)
		_, _ = io.WriteString(w, `{"doc_id":"d1"}`)
	}))
	defer srv.Close()

	tokens := memory.NewSlot()
	require.NoError(t, tokens.Set(ctx, "T"))
	raw, err := New(Options{BaseURL: srv.URL, Tokens: tokens}).Upload(ctx, "/kb/ingest", Multipart{
		Fields: []FormField{{Name: "visibility", Value: "private"}},
		Files:  []File{{Field: "file", Filename: "guide.md", Content: strings.NewReader("# hi")}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"doc_id":"d1"}`, string(raw))
	assert.Equal(t, "Bearer T", gotAuth)
	assert.Equal(t, "private", gotVis)
	assert.Equal(t, "guide.md", gotName)
	assert.Equal(t, "# hi", gotContent)
}

func TestUpload_RequiresFiles(t *testing.T) {
	_, err := New(Options{BaseURL: "http://unused"}).Upload(context.Background(), "/kb/ingest", Multipart{})
	assert.True(t, apperrors.IsValidation(err))
}

type failingStore struct{}

func (failingStore) Get(context.Context) (string, error) { return "", errors.New("redis down") }
func (failingStore) Set(context.Context, string) error   { return nil }
func (failingStore) Clear(context.Context) error         { return nil }

func TestRequest_TokenStoreFailure(t *testing.T) {
	srv, calls := newBackend(t, http.StatusOK, `{}`)
	_, err := New(Options{BaseURL: srv.URL, Tokens: failingStore{}}).Get(context.Background(), "/x")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInternal, apperrors.GetCode(err))
	assert.Empty(t, *calls)
}
