package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/target/kb-assistant-web/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.TokenStore        = (*MockTokenStore)(nil)
	_ ports.TokenStoreFactory = (*MemoryTokenStores)(nil)
	_ ports.TokenInspector    = (*StaticInspector)(nil)
	_ ports.Notifier          = (*RecordingNotifier)(nil)
)

// ErrStoreUnavailable is the default failure of a MockTokenStore with Fail set.
var ErrStoreUnavailable = errors.New("token store unavailable")

// MockTokenStore is an in-memory TokenStore whose methods can be overridden.
type MockTokenStore struct {
	GetFunc   func(ctx context.Context) (string, error)
	SetFunc   func(ctx context.Context, token string) error
	ClearFunc func(ctx context.Context) error

	// Fail makes every default method return ErrStoreUnavailable.
	Fail bool

	mu    sync.Mutex
	token string
	sets  int
}

func (m *MockTokenStore) Get(ctx context.Context) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx)
	}
	if m.Fail {
		return "", ErrStoreUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MockTokenStore) Set(ctx context.Context, token string) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, token)
	}
	if m.Fail {
		return ErrStoreUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.sets++
	return nil
}

func (m *MockTokenStore) Clear(ctx context.Context) error {
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx)
	}
	if m.Fail {
		return ErrStoreUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

// Sets reports how many successful default Set calls happened.
func (m *MockTokenStore) Sets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

// MemoryTokenStores hands out one MockTokenStore per client id.
type MemoryTokenStores struct {
	mu     sync.Mutex
	stores map[string]*MockTokenStore
}

// NewMemoryTokenStores creates an empty factory.
func NewMemoryTokenStores() *MemoryTokenStores {
	return &MemoryTokenStores{stores: make(map[string]*MockTokenStore)}
}

func (m *MemoryTokenStores) ForClient(clientID string) ports.TokenStore {
	return m.Store(clientID)
}

// Store returns the concrete store for clientID, creating it on first use.
func (m *MemoryTokenStores) Store(clientID string) *MockTokenStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[clientID]
	if !ok {
		s = &MockTokenStore{}
		m.stores[clientID] = s
	}
	return s
}

// StaticInspector treats tokens listed in Claims as JWTs and everything else as opaque.
type StaticInspector struct {
	Claims map[string]ports.TokenClaims
}

func (s StaticInspector) Inspect(token string) (ports.TokenClaims, bool) {
	c, ok := s.Claims[token]
	return c, ok
}

// ExpiredClaims builds claims that expired one minute before now.
func ExpiredClaims(username string, now time.Time) ports.TokenClaims {
	return ports.TokenClaims{Subject: username, Username: username, ExpiresAt: now.Add(-time.Minute)}
}

// RecordingNotifier keeps every notice it receives.
type RecordingNotifier struct {
	mu      sync.Mutex
	notices []ports.Notice
}

func (r *RecordingNotifier) Notify(_ context.Context, n ports.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of the recorded notices.
func (r *RecordingNotifier) Notices() []ports.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.Notice(nil), r.notices...)
}

// Last returns the most recent notice, or the zero Notice.
func (r *RecordingNotifier) Last() ports.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return ports.Notice{}
	}
	return r.notices[len(r.notices)-1]
}
