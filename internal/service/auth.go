package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/sync/singleflight"

	"github.com/target/kb-assistant-web/internal/apiclient"
	"github.com/target/kb-assistant-web/internal/domain/auth"
	apperrors "github.com/target/kb-assistant-web/internal/errors"
	"github.com/target/kb-assistant-web/internal/observability/metrics"
	"github.com/target/kb-assistant-web/internal/observability/statsd"
	"github.com/target/kb-assistant-web/internal/ports"
)

const (
	msgNetwork        = "Unable to reach the server. Please try again."
	msgNoToken        = "login response did not include a token"
	msgPersistFailed  = "could not save the session"
	msgLoginCancelled = "login was cancelled by a logout"
	remoteLogoutWait  = 10 * time.Second
)

// AuthPaths are the backend endpoints the session layer calls.
type AuthPaths struct {
	Login    string
	Register string
	Logout   string
	Validate string
}

// ResponseMapping holds JMESPath expressions applied to auth responses.
type ResponseMapping struct {
	// Token selects the bearer token from the login response.
	Token string
	// User selects the user object from the login response.
	User string
	// Profile selects the user object from the validate response.
	Profile string
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	// API is the backend client. The service rebinds it to Tokens and never installs a 401 hook on it.
	API       *apiclient.Client
	Tokens    ports.TokenStore
	Inspector ports.TokenInspector
	Notifier  ports.Notifier
	Metrics   statsd.Sink
	Paths     AuthPaths
	Mapping   ResponseMapping
	// RemoteLogout fires a best-effort logout call with the outgoing token.
	RemoteLogout bool
	Logger       *slog.Logger
	Now          func() time.Time
}

// AuthService owns one client's Session: the token, the user and the status.
// All transitions go through its methods; readers take snapshots.
//
// Ordering: session fields are written by whichever response resolves last,
// except that responses belonging to attempts started before the most recent
// logout are discarded.
//
// Locking: mu guards the in-memory session and is never held across a token
// store call. persistMu orders store writes against session writes; it is
// taken before mu.
type AuthService struct {
	api          *apiclient.Client
	tokens       ports.TokenStore
	inspector    ports.TokenInspector
	notifier     ports.Notifier
	metrics      statsd.Sink
	paths        AuthPaths
	mapping      ResponseMapping
	remoteLogout bool
	log          *slog.Logger
	now          func() time.Time

	mu       sync.Mutex
	session  auth.Session
	epoch    uint64 // bumped by every logout
	gen      uint64 // bumped by every session write from login or logout
	pending  int    // logins in flight
	resolved bool
	subs     map[int]func(auth.Session)
	nextSub  int

	persistMu sync.Mutex

	initGroup singleflight.Group
	bg        sync.WaitGroup
}

// NewAuthService constructs an AuthService in the unknown state.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	api := opts.API
	if api == nil {
		api = apiclient.New(apiclient.Options{})
	}
	return &AuthService{
		api:          api.WithTokens(opts.Tokens).WithUnauthorizedHook(nil),
		tokens:       opts.Tokens,
		inspector:    opts.Inspector,
		notifier:     opts.Notifier,
		metrics:      opts.Metrics,
		paths:        withDefaultPaths(opts.Paths),
		mapping:      withDefaultMapping(opts.Mapping),
		remoteLogout: opts.RemoteLogout,
		log:          opts.Logger,
		now:          now,
		session:      auth.Session{Status: auth.StatusUnknown},
		subs:         make(map[int]func(auth.Session)),
	}
}

func withDefaultPaths(p AuthPaths) AuthPaths {
	if p.Login == "" {
		p.Login = "/auth/login"
	}
	if p.Register == "" {
		p.Register = "/auth/register"
	}
	if p.Logout == "" {
		p.Logout = "/auth/logout"
	}
	if p.Validate == "" {
		p.Validate = "/auth/me"
	}
	return p
}

func withDefaultMapping(m ResponseMapping) ResponseMapping {
	if m.Token == "" {
		m.Token = "token || access_token"
	}
	if m.User == "" {
		m.User = "user"
	}
	if m.Profile == "" {
		m.Profile = "user || @"
	}
	return m
}

// ValidateMapping compiles the expressions so bad configuration fails at startup.
func ValidateMapping(m ResponseMapping) error {
	m = withDefaultMapping(m)
	var errs []error
	for name, expr := range map[string]string{"token": m.Token, "user": m.User, "profile": m.Profile} {
		if _, err := jmespath.Compile(expr); err != nil {
			errs = append(errs, fmt.Errorf("%s expression %q: %w", name, expr, err))
		}
	}
	return errors.Join(errs...)
}

func (s *AuthService) logger() *slog.Logger {
	if s != nil && s.log != nil {
		return s.log
	}
	return slog.Default()
}

// Snapshot returns a copy of the current session.
func (s *AuthService) Snapshot() auth.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSession(s.session)
}

// Status returns the current status.
func (s *AuthService) Status() auth.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Status
}

// Subscribe registers fn to receive every new snapshot. The returned func unsubscribes.
func (s *AuthService) Subscribe(fn func(auth.Session)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Init resolves the persisted token into a session on first use. Concurrent
// callers share one resolution. If ctx ends first, Init returns the current
// (unresolved) status while resolution continues in the background.
func (s *AuthService) Init(ctx context.Context) auth.Status {
	s.mu.Lock()
	if s.resolved {
		st := s.session.Status
		s.mu.Unlock()
		return st
	}
	s.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	ch := s.initGroup.DoChan("init", func() (any, error) {
		return s.resolve(bg), nil
	})
	select {
	case res := <-ch:
		st, _ := res.Val.(auth.Status)
		return st
	case <-ctx.Done():
		return s.Status()
	}
}

func (s *AuthService) resolve(ctx context.Context) auth.Status {
	s.mu.Lock()
	if s.resolved {
		st := s.session.Status
		s.mu.Unlock()
		return st
	}
	gen := s.gen
	s.mu.Unlock()

	token, err := s.tokens.Get(ctx)
	if err != nil {
		s.logger().WarnContext(ctx, "read persisted token failed", slog.Any("error", err))
		return s.finishResolve(ctx, gen, auth.Session{Status: auth.StatusAnonymous})
	}
	if token == "" {
		return s.finishResolve(ctx, gen, auth.Session{Status: auth.StatusAnonymous})
	}

	claims, isJWT := s.inspect(token)
	if isJWT && claims.Expired(s.now()) {
		s.clearTokenAt(ctx, gen)
		s.notify(ctx, ports.NoticeInfo, "Your session has expired. Please sign in again.")
		return s.finishResolve(ctx, gen, auth.Session{Status: auth.StatusAnonymous})
	}

	s.setResolvingStatus(gen)

	raw, err := s.api.Request(ctx, s.paths.Validate, apiclient.RequestConfig{Method: http.MethodGet})
	if err == nil {
		if user, ok := s.mapUser(s.mapping.Profile, raw); ok {
			return s.finishResolve(ctx, gen, auth.Session{Token: token, User: user, Status: auth.StatusAuthenticated})
		}
	}

	if apperrors.IsUnauthorized(err) || apperrors.GetCode(err) == apperrors.ErrCodeForbidden {
		s.clearTokenAt(ctx, gen)
		return s.finishResolve(ctx, gen, auth.Session{Status: auth.StatusAnonymous})
	}

	// The backend could not vouch for the token; fall back to its own claims.
	if isJWT && claims.Username != "" {
		s.logger().InfoContext(ctx, "session restored from token claims", slog.Any("validate_error", err))
		user := &auth.User{Username: claims.Username}
		return s.finishResolve(ctx, gen, auth.Session{Token: token, User: user, Status: auth.StatusAuthenticated})
	}

	// The stored token is kept so a later visit can retry validation.
	s.logger().WarnContext(ctx, "persisted token could not be validated", slog.Any("error", err))
	return s.finishResolve(ctx, gen, auth.Session{Status: auth.StatusAnonymous})
}

func (s *AuthService) setResolvingStatus(gen uint64) {
	s.mu.Lock()
	if s.gen != gen || s.resolved {
		s.mu.Unlock()
		return
	}
	s.session.Status = auth.StatusAuthenticating
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()
	publish(snap, subs)
}

func (s *AuthService) finishResolve(ctx context.Context, gen uint64, next auth.Session) auth.Status {
	s.mu.Lock()
	s.resolved = true
	if s.gen != gen {
		// A login or logout landed while resolving; it wins.
		st := s.session.Status
		s.mu.Unlock()
		return st
	}
	s.session = next
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()

	s.logger().DebugContext(ctx, "session resolved", slog.String("status", string(next.Status)))
	publish(snap, subs)
	return next.Status
}

// Login authenticates against the backend. It never returns an error: failures
// are reported in the Result and leave any existing session untouched.
func (s *AuthService) Login(ctx context.Context, username, password string) auth.Result {
	creds := auth.Credentials{Username: username, Password: password}.Normalize()
	if err := creds.Validate(); err != nil {
		return auth.Failed(err.Error())
	}

	s.Init(ctx)

	s.mu.Lock()
	startEpoch := s.epoch
	s.pending++
	if s.session.Status != auth.StatusAuthenticated {
		s.session.Status = auth.StatusAuthenticating
	}
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()
	publish(snap, subs)

	token, user, err := s.exchange(ctx, creds)
	if err != nil {
		return s.failLogin(ctx, err)
	}

	if res, ok := s.commitLogin(ctx, startEpoch, token, user); !ok {
		return res
	}

	metrics.EmitAuthEvent(s.metrics, "login", metrics.ResultSuccess)
	s.logger().InfoContext(ctx, "login succeeded", slog.String("username", user.Username))
	s.notify(ctx, ports.NoticeSuccess, "Signed in as "+user.DisplayName())
	return auth.Succeeded()
}

// commitLogin persists the token and then writes the session. Readers never
// wait on the store: only persistMu is held across the write.
func (s *AuthService) commitLogin(ctx context.Context, startEpoch uint64, token string, user *auth.User) (auth.Result, bool) {
	s.persistMu.Lock()

	s.mu.Lock()
	cancelled := s.epoch != startEpoch
	s.mu.Unlock()
	if cancelled {
		s.persistMu.Unlock()
		return s.abortLogin(msgLoginCancelled), false
	}

	if err := s.tokens.Set(ctx, token); err != nil {
		s.persistMu.Unlock()
		s.logger().ErrorContext(ctx, "persist token failed", slog.Any("error", err))
		return s.abortLogin(msgPersistFailed), false
	}

	s.mu.Lock()
	if s.epoch != startEpoch {
		// A logout landed during the write; its store clear waits on persistMu
		// and removes the token written above.
		s.mu.Unlock()
		s.persistMu.Unlock()
		return s.abortLogin(msgLoginCancelled), false
	}
	s.pending--
	s.gen++
	s.resolved = true
	s.session = auth.Session{Token: token, User: user, Status: auth.StatusAuthenticated}
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()
	s.persistMu.Unlock()

	publish(snap, subs)
	return auth.Succeeded(), true
}

// abortLogin settles a login whose response arrived but was not applied.
func (s *AuthService) abortLogin(msg string) auth.Result {
	s.mu.Lock()
	s.pending--
	s.restoreStatusLocked()
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()
	publish(snap, subs)
	metrics.EmitAuthEvent(s.metrics, "login", metrics.ResultError)
	return auth.Failed(msg)
}

func (s *AuthService) exchange(ctx context.Context, creds auth.Credentials) (string, *auth.User, error) {
	raw, err := s.api.Request(ctx, s.paths.Login, apiclient.RequestConfig{
		Method:   http.MethodPost,
		Body:     creds,
		SkipAuth: true,
	})
	if err != nil {
		return "", nil, err
	}

	doc, err := decodeDocument(raw)
	if err != nil {
		return "", nil, &apiclient.Error{Method: http.MethodPost, Path: s.paths.Login, Status: http.StatusOK, Message: apiclient.GenericFailureMessage}
	}
	token := searchString(s.mapping.Token, doc)
	if token == "" {
		return "", nil, apperrors.Internal(msgNoToken)
	}
	user, ok := s.mapUser(s.mapping.User, raw)
	if !ok {
		user = &auth.User{Username: creds.Username}
	}
	return token, user, nil
}

func (s *AuthService) failLogin(ctx context.Context, err error) auth.Result {
	s.mu.Lock()
	s.pending--
	s.restoreStatusLocked()
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()
	publish(snap, subs)

	msg := UserMessage(err)
	metrics.EmitAuthEvent(s.metrics, "login", metrics.ResultError)
	s.logger().InfoContext(ctx, "login failed", slog.Any("error", err))
	s.notify(ctx, ports.NoticeError, msg)
	return auth.Failed(msg)
}

// restoreStatusLocked settles the status after a login attempt that did not write the session.
func (s *AuthService) restoreStatusLocked() {
	switch {
	case s.session.Token != "" && s.session.User != nil:
		s.session.Status = auth.StatusAuthenticated
	case s.pending > 0:
		s.session.Status = auth.StatusAuthenticating
	default:
		s.session.Status = auth.StatusAnonymous
	}
}

// Register creates an account. The form is validated before any network call
// and no session is established.
func (s *AuthService) Register(ctx context.Context, form auth.RegistrationForm) auth.Result {
	if err := form.Validate(); err != nil {
		return auth.Failed(err.Error())
	}

	_, err := s.api.Request(ctx, s.paths.Register, apiclient.RequestConfig{
		Method:   http.MethodPost,
		Body:     form.Profile(),
		SkipAuth: true,
	})
	if err != nil {
		msg := UserMessage(err)
		metrics.EmitAuthEvent(s.metrics, "register", metrics.ResultError)
		s.notify(ctx, ports.NoticeError, msg)
		return auth.Failed(msg)
	}

	metrics.EmitAuthEvent(s.metrics, "register", metrics.ResultSuccess)
	s.notify(ctx, ports.NoticeSuccess, "Registration successful. Please sign in.")
	return auth.Succeeded()
}

// Logout ends the session immediately. It is idempotent.
func (s *AuthService) Logout(ctx context.Context) {
	prev, ended := s.endSession(ctx)
	if !ended {
		return
	}
	metrics.EmitAuthEvent(s.metrics, "logout", metrics.ResultSuccess)
	s.notify(ctx, ports.NoticeInfo, "You have been signed out.")
	if s.remoteLogout && prev != "" {
		s.sendRemoteLogout(ctx, prev)
	}
}

// HandleUnauthorized is the implicit logout run when an authorized call is rejected with 401.
func (s *AuthService) HandleUnauthorized(ctx context.Context) {
	if _, ended := s.endSession(ctx); !ended {
		return
	}
	metrics.EmitAuthEvent(s.metrics, "expired", metrics.ResultSuccess)
	s.notify(ctx, ports.NoticeError, "Your session has expired. Please sign in again.")
}

// Discard ends the session without notices or a remote logout. It retires a
// client whose identity is being replaced.
func (s *AuthService) Discard(ctx context.Context) {
	s.endSession(ctx)
}

// endSession clears token, user and store. ended reports whether a session existed.
// The in-memory session is cleared first so readers see the logout at once.
func (s *AuthService) endSession(ctx context.Context) (string, bool) {
	s.mu.Lock()
	prev := s.session.Token
	ended := prev != "" || s.session.User != nil
	s.epoch++
	s.gen++
	s.resolved = true
	// Logins still in flight observe the epoch change and are discarded.
	s.session = auth.Session{Status: auth.StatusAnonymous}
	gen := s.gen
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()

	publish(snap, subs)
	s.clearTokenAt(ctx, gen)
	return prev, ended
}

func (s *AuthService) sendRemoteLogout(ctx context.Context, token string) {
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), remoteLogoutWait)
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		defer cancel()
		_, err := s.api.Request(bg, s.paths.Logout, apiclient.RequestConfig{
			Method:   http.MethodPost,
			SkipAuth: true,
			Headers:  map[string]string{"Authorization": "Bearer " + token},
		})
		if err != nil {
			s.logger().DebugContext(bg, "remote logout failed", slog.Any("error", err))
		}
	}()
}

// Wait blocks until background remote logouts finish.
func (s *AuthService) Wait() {
	s.bg.Wait()
}

// clearTokenAt clears the store unless a session write newer than gen has
// already persisted its own token.
func (s *AuthService) clearTokenAt(ctx context.Context, gen uint64) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	superseded := s.gen != gen
	s.mu.Unlock()
	if superseded {
		return
	}
	if err := s.tokens.Clear(ctx); err != nil {
		s.logger().WarnContext(ctx, "clear persisted token failed", slog.Any("error", err))
	}
}

func (s *AuthService) inspect(token string) (ports.TokenClaims, bool) {
	if s.inspector == nil {
		return ports.TokenClaims{}, false
	}
	return s.inspector.Inspect(token)
}

func (s *AuthService) notify(ctx context.Context, kind ports.NoticeKind, msg string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, ports.Notice{Kind: kind, Message: msg})
}

func (s *AuthService) snapshotLocked() (auth.Session, []func(auth.Session)) {
	subs := make([]func(auth.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return cloneSession(s.session), subs
}

func publish(snap auth.Session, subs []func(auth.Session)) {
	for _, fn := range subs {
		fn(cloneSession(snap))
	}
}

func cloneSession(in auth.Session) auth.Session {
	out := in
	if in.User != nil {
		u := *in.User
		out.User = &u
	}
	return out
}

// mapUser applies expr to raw and decodes the result as a User with a username.
func (s *AuthService) mapUser(expr string, raw json.RawMessage) (*auth.User, bool) {
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, false
	}
	found, err := jmespath.Search(expr, doc)
	if err != nil || found == nil {
		return nil, false
	}
	b, err := json.Marshal(found)
	if err != nil {
		return nil, false
	}
	var u auth.User
	if err := json.Unmarshal(b, &u); err != nil || strings.TrimSpace(u.Username) == "" {
		return nil, false
	}
	return &u, true
}

func decodeDocument(raw json.RawMessage) (any, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func searchString(expr string, doc any) string {
	v, err := jmespath.Search(expr, doc)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// UserMessage turns any failure into text suitable for inline display.
func UserMessage(err error) string {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if apperrors.IsNetwork(err) {
		return msgNetwork
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return apiclient.GenericFailureMessage
}
