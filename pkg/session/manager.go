package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type idKey struct{}

// boundSession is the session of one request context. Its tokens are
// cleared at most once.
type boundSession struct {
	id          string
	once        sync.Once
	invalidated atomic.Bool
	err         error
}

// ContextWithID attaches the browser session id to ctx. Invalidate runs at
// most once per context returned here.
func ContextWithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey{}, &boundSession{id: id})
}

// IDFromContext returns the session id set by ContextWithID.
func IDFromContext(ctx context.Context) (string, bool) {
	b, ok := ctx.Value(idKey{}).(*boundSession)
	if !ok || b.id == "" {
		return "", false
	}
	return b.id, true
}

// Invalidated reports whether Invalidate already cleared the session of ctx.
func Invalidated(ctx context.Context) bool {
	b, ok := ctx.Value(idKey{}).(*boundSession)
	return ok && b.invalidated.Load()
}

// Manager resolves tokens for the session carried by a request context.
type Manager struct {
	store Store
	now   func() time.Time
}

// NewManager wraps store. A nil store falls back to memory.
func NewManager(store Store) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{store: store, now: time.Now}
}

// Store exposes the underlying token store.
func (m *Manager) Store() Store {
	return m.store
}

// AccessToken returns the stored access token for the context session.
// An access token whose exp claim has passed is cleared and reported as missing.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	id, ok := IDFromContext(ctx)
	if !ok {
		return "", ErrNoSession
	}
	tokens, err := m.store.Load(ctx, id)
	if err != nil {
		return "", err
	}
	if exp, ok := AccessExpiry(tokens.Access); ok && !m.now().Before(exp) {
		_ = m.store.Clear(ctx, id)
		return "", ErrNoSession
	}
	return tokens.Access, nil
}

// Invalidate drops both tokens of the context session. Repeated calls on the
// same request context return the result of the first.
func (m *Manager) Invalidate(ctx context.Context) error {
	b, ok := ctx.Value(idKey{}).(*boundSession)
	if !ok || b.id == "" {
		return nil
	}
	b.once.Do(func() {
		b.err = m.store.Clear(ctx, b.id)
		b.invalidated.Store(true)
	})
	return b.err
}

// Save stores tokens for the context session.
func (m *Manager) Save(ctx context.Context, tokens Tokens) error {
	id, ok := IDFromContext(ctx)
	if !ok {
		return ErrNoSession
	}
	return m.store.Save(ctx, id, tokens)
}

// Authenticated reports whether the context session holds a usable access token.
func (m *Manager) Authenticated(ctx context.Context) bool {
	_, err := m.AccessToken(ctx)
	return err == nil
}

// AccessExpiry reads the exp claim of a JWT without verifying its signature.
// The backend owns verification; this only avoids sending tokens known to be stale.
func AccessExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	switch exp := claims["exp"].(type) {
	case float64:
		return time.Unix(int64(exp), 0), true
	case json.Number:
		if v, err := exp.Int64(); err == nil {
			return time.Unix(v, 0), true
		}
	}
	return time.Time{}, false
}

// IsNoSession reports whether err means no tokens are stored.
func IsNoSession(err error) bool {
	return errors.Is(err, ErrNoSession)
}
