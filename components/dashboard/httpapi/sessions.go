package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/goliatone/go-predify/pkg/session"
)

// CookieName names the browser session cookie.
const CookieName = "predify_session"

const sessionIDKey = "sid"

type sessionIDKeyType struct{}

// CookieOptions configure the signed session cookie.
type CookieOptions struct {
	Secure bool
	MaxAge int
}

// NewCookieStore builds the gorilla cookie store holding the session id.
func NewCookieStore(secret []byte, opts CookieOptions) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   opts.MaxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// WithSession assigns every request a session id, kept in a signed cookie, and
// binds it to the request context for the token manager.
func WithSession(store sessions.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, _ := store.Get(r, CookieName)
			id, _ := sess.Values[sessionIDKey].(string)
			if id == "" {
				id = session.NewID()
				sess.Values[sessionIDKey] = id
				if err := sess.Save(r, w); err != nil {
					http.Error(w, "session unavailable", http.StatusInternalServerError)
					return
				}
			}
			ctx := session.ContextWithID(r.Context(), id)
			ctx = context.WithValue(ctx, sessionIDKeyType{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionID returns the id assigned by WithSession.
func SessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionIDKeyType{}).(string)
	return id
}
