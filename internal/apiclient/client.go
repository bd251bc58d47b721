// Package apiclient is the single channel through which the application talks
// to the knowledge-base backend. Every call re-reads the bearer token from the
// configured store, so a token change takes effect on the very next request.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/target/kb-assistant-web/internal/errors"
	"github.com/target/kb-assistant-web/internal/observability/metrics"
	"github.com/target/kb-assistant-web/internal/observability/statsd"
	"github.com/target/kb-assistant-web/internal/ports"
)

const maxResponseBytes = 16 << 20

// ErrEmptyPath is returned (wrapped in a validation error) when Request is called without a path.
var ErrEmptyPath = errors.New("request path is required")

// Options groups dependencies for Client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// Tokens supplies the bearer token. Nil means requests are always sent unauthenticated.
	Tokens ports.TokenStore
	// OnUnauthorized runs when a request that carried a token is answered with 401.
	OnUnauthorized func(ctx context.Context)
	Metrics        statsd.Sink
	Logger         *slog.Logger
}

// Client issues JSON requests against the backend. It is immutable; the With*
// methods return modified copies sharing the same transport.
type Client struct {
	baseURL        string
	http           *http.Client
	tokens         ports.TokenStore
	onUnauthorized func(ctx context.Context)
	metrics        statsd.Sink
	log            *slog.Logger
}

// New constructs a Client.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		http:           hc,
		tokens:         opts.Tokens,
		onUnauthorized: opts.OnUnauthorized,
		metrics:        opts.Metrics,
		log:            opts.Logger,
	}
}

func (c *Client) logger() *slog.Logger {
	if c != nil && c.log != nil {
		return c.log
	}
	return slog.Default()
}

// WithTokens returns a copy reading its bearer token from ts.
func (c *Client) WithTokens(ts ports.TokenStore) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// WithUnauthorizedHook returns a copy with fn as the 401 hook. Nil disables it.
func (c *Client) WithUnauthorizedHook(fn func(ctx context.Context)) *Client {
	cp := *c
	cp.onUnauthorized = fn
	return &cp
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string { return c.baseURL }

// RequestConfig describes one call.
type RequestConfig struct {
	// Method defaults to GET.
	Method string
	// Body is JSON-encoded unless it is already a json.RawMessage.
	Body any
	// Headers are applied last and override defaults, Authorization included.
	Headers map[string]string
	// SkipAuth suppresses the Authorization header.
	SkipAuth bool
	// Endpoint is a low-cardinality label for metrics; defaults to the path without its query.
	Endpoint string
}

// Request performs the call and returns the decoded JSON body. A 2xx response
// with an empty body yields JSON null.
func (c *Client) Request(ctx context.Context, path string, cfg RequestConfig) (json.RawMessage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, apperrors.Wrap(ErrEmptyPath, apperrors.ErrCodeValidation, "invalid request")
	}
	method := cfg.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if cfg.Body != nil {
		payload, err := encodeBody(cfg.Body)
		if err != nil {
			return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "encode %s %s body", method, path)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeValidation, "build %s %s", method, path)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.do(ctx, req, doParams{path: path, endpoint: cfg.Endpoint, skipAuth: cfg.SkipAuth, headers: cfg.Headers})
}

// Get issues a GET.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Request(ctx, path, RequestConfig{Method: http.MethodGet})
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Request(ctx, path, RequestConfig{Method: http.MethodPost, Body: body})
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Request(ctx, path, RequestConfig{Method: http.MethodPut, Body: body})
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Request(ctx, path, RequestConfig{Method: http.MethodDelete})
}

// Do performs the request and decodes the body into T.
func Do[T any](ctx context.Context, c *Client, path string, cfg RequestConfig) (T, error) {
	var out T
	raw, err := c.Request(ctx, path, cfg)
	if err != nil {
		return out, err
	}
	if err := decodeInto(raw, &out); err != nil {
		return out, &Error{Method: methodOr(cfg.Method), Path: path, Status: http.StatusOK, Message: GenericFailureMessage}
	}
	return out, nil
}

type doParams struct {
	path     string
	endpoint string
	skipAuth bool
	headers  map[string]string
}

func (c *Client) do(ctx context.Context, req *http.Request, p doParams) (json.RawMessage, error) {
	withToken := false
	if !p.skipAuth {
		token, err := c.currentToken(ctx)
		if err != nil {
			return nil, err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
			withToken = true
		}
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	raw, status, err := c.roundTrip(req, p.path)
	metrics.EmitAPIRequest(c.metrics, metrics.APIRequest{
		Method:   req.Method,
		Endpoint: endpointLabel(p),
		Status:   status,
		Duration: time.Since(start),
		Err:      err,
	})

	if err != nil {
		c.logger().DebugContext(ctx, "backend request failed",
			slog.String("method", req.Method),
			slog.String("path", p.path),
			slog.Int("status", status),
			slog.Any("error", err),
		)
		if status == http.StatusUnauthorized && withToken && c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return nil, err
	}
	return raw, nil
}

func (c *Client) roundTrip(req *http.Request, path string) (json.RawMessage, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &NetworkError{Method: req.Method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, &NetworkError{Method: req.Method, Path: path, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, newResponseError(req.Method, path, resp.StatusCode, body)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return json.RawMessage("null"), resp.StatusCode, nil
	}
	if !json.Valid(body) {
		return nil, resp.StatusCode, &Error{Method: req.Method, Path: path, Status: resp.StatusCode, Message: GenericFailureMessage}
	}
	return json.RawMessage(body), resp.StatusCode, nil
}

func (c *Client) currentToken(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", nil
	}
	token, err := c.tokens.Get(ctx)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "read stored token")
	}
	return token, nil
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, "?") {
		return c.baseURL + path
	}
	return c.baseURL + "/" + path
}

func encodeBody(body any) ([]byte, error) {
	if raw, ok := body.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(body)
}

func decodeInto(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func endpointLabel(p doParams) string {
	if p.endpoint != "" {
		return p.endpoint
	}
	if i := strings.IndexByte(p.path, '?'); i >= 0 {
		return p.path[:i]
	}
	return p.path
}

func methodOr(m string) string {
	if m == "" {
		return http.MethodGet
	}
	return m
}

func asError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
