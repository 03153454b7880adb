package auth

import (
	"crypto/sha256"
	"net/http"

	"github.com/gorilla/sessions"
)

// SessionName is the name of the admin session cookie.
const SessionName = "crm_session"

// Session value keys.
const (
	SessionKeyAuthenticated = "authenticated"
	SessionKeyEmail         = "email"
	SessionKeyName          = "name"
)

// SessionStore manages the signed admin session cookie. Logging in
// through SimplyAPI writes the session; the Grid endpoints require it.
type SessionStore struct {
	store *sessions.CookieStore
}

// NewSessionStore builds a cookie-based session store.
//
// The secret can be any passphrase - it is SHA-256 hashed to derive a
// 32-byte signing key. It must be consistent across server restarts.
// maxAgeSeconds bounds the admin session lifetime.
func NewSessionStore(secret string, maxAgeSeconds int, secure bool) *SessionStore {
	key := sha256.Sum256([]byte(secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAgeSeconds,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &SessionStore{store: store}
}

// Get retrieves the admin session from the request, creating a fresh one
// if none exists.
func (s *SessionStore) Get(r *http.Request) (*sessions.Session, error) {
	return s.store.Get(r, SessionName)
}

// SignIn marks the session authenticated for the given admin user and
// writes the cookie.
func (s *SessionStore) SignIn(r *http.Request, w http.ResponseWriter, email, name string) error {
	session, err := s.Get(r)
	if err != nil {
		// A stale or tampered cookie decodes with an error but still
		// yields a usable fresh session.
		session, _ = s.store.New(r, SessionName)
	}

	session.Values[SessionKeyAuthenticated] = true
	session.Values[SessionKeyEmail] = email
	session.Values[SessionKeyName] = name

	return session.Save(r, w)
}

// SignOut expires the session cookie.
func (s *SessionStore) SignOut(r *http.Request, w http.ResponseWriter) error {
	session, err := s.Get(r)
	if err != nil {
		session, _ = s.store.New(r, SessionName)
	}

	session.Options.MaxAge = -1
	for k := range session.Values {
		delete(session.Values, k)
	}

	return session.Save(r, w)
}

// IsAuthenticated reports whether the request carries a valid admin
// session.
func (s *SessionStore) IsAuthenticated(r *http.Request) bool {
	session, err := s.Get(r)
	if err != nil {
		return false
	}
	authed, ok := session.Values[SessionKeyAuthenticated].(bool)
	return ok && authed
}
