// Package memory provides an in-process token store used when Redis is not configured.
// Tokens do not survive a restart.
package memory

import (
	"context"
	"sync"

	"github.com/target/kb-assistant-web/internal/ports"
)

var (
	_ ports.TokenStoreFactory = (*TokenStore)(nil)
	_ ports.TokenStore        = (*Slot)(nil)
)

// TokenStore keeps one token per client id in a map.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

// NewTokenStore creates an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]string)}
}

// ForClient returns the slot bound to clientID.
//
//nolint:ireturn // the port is the contract callers depend on.
func (s *TokenStore) ForClient(clientID string) ports.TokenStore {
	return &Slot{parent: s, id: clientID}
}

// Len reports how many tokens are held.
func (s *TokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// Slot is a single client's view of the store.
type Slot struct {
	parent *TokenStore
	id     string
}

// NewSlot returns a standalone slot, handy for single-session callers.
func NewSlot() *Slot {
	return &Slot{parent: NewTokenStore(), id: "default"}
}

func (s *Slot) Get(_ context.Context) (string, error) {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	return s.parent.tokens[s.id], nil
}

func (s *Slot) Set(_ context.Context, token string) error {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	if token == "" {
		delete(s.parent.tokens, s.id)
		return nil
	}
	s.parent.tokens[s.id] = token
	return nil
}

func (s *Slot) Clear(_ context.Context) error {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	delete(s.parent.tokens, s.id)
	return nil
}
