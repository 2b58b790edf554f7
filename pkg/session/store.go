package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrNoSession is returned when no tokens are stored for a session id.
var ErrNoSession = errors.New("session: no tokens stored")

// Tokens is the pair issued by the backend on seller login.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Empty reports whether no access token is present.
func (t Tokens) Empty() bool {
	return strings.TrimSpace(t.Access) == ""
}

// Store persists token pairs per browser session.
type Store interface {
	Load(ctx context.Context, id string) (Tokens, error)
	Save(ctx context.Context, id string, tokens Tokens) error
	Clear(ctx context.Context, id string) error
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

// MemoryStore keeps tokens in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Tokens
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Tokens)}
}

func (s *MemoryStore) Load(_ context.Context, id string) (Tokens, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tokens, ok := s.data[id]
	if !ok || tokens.Empty() {
		return Tokens{}, ErrNoSession
	}
	return tokens, nil
}

func (s *MemoryStore) Save(_ context.Context, id string, tokens Tokens) error {
	if id == "" {
		return errors.New("session: id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = tokens
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}
