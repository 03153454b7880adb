package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignInRoundTrip(t *testing.T) {
	store := NewSessionStore("passphrase", 3600, false)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, store.SignIn(req, rec, "admin@autodirecto.cl", "Admin"))

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, SessionName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	next := httptest.NewRequest(http.MethodGet, "/grid", nil)
	for _, c := range cookies {
		next.AddCookie(c)
	}
	assert.True(t, store.IsAuthenticated(next))

	session, err := store.Get(next)
	require.NoError(t, err)
	assert.Equal(t, "admin@autodirecto.cl", session.Values[SessionKeyEmail])
	assert.Equal(t, "Admin", session.Values[SessionKeyName])
}

func TestIsAuthenticatedWithoutCookie(t *testing.T) {
	store := NewSessionStore("passphrase", 3600, false)
	req := httptest.NewRequest(http.MethodGet, "/grid", nil)
	assert.False(t, store.IsAuthenticated(req))
}

func TestTamperedCookieIsRejected(t *testing.T) {
	store := NewSessionStore("passphrase", 3600, false)

	req := httptest.NewRequest(http.MethodGet, "/grid", nil)
	req.AddCookie(&http.Cookie{Name: SessionName, Value: "Zm9yZ2VkLXZhbHVl"})

	assert.False(t, store.IsAuthenticated(req))
}

func TestDifferentSecretRejectsCookie(t *testing.T) {
	issuer := NewSessionStore("secret-a", 3600, false)
	verifier := NewSessionStore("secret-b", 3600, false)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, issuer.SignIn(req, rec, "admin@autodirecto.cl", "Admin"))

	next := httptest.NewRequest(http.MethodGet, "/grid", nil)
	for _, c := range rec.Result().Cookies() {
		next.AddCookie(c)
	}
	assert.False(t, verifier.IsAuthenticated(next))
}

func TestSignOutExpiresCookie(t *testing.T) {
	store := NewSessionStore("passphrase", 3600, false)

	loginReq := httptest.NewRequest(http.MethodPost, "/login", nil)
	loginRec := httptest.NewRecorder()
	require.NoError(t, store.SignIn(loginReq, loginRec, "admin@autodirecto.cl", "Admin"))

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	for _, c := range loginRec.Result().Cookies() {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, store.SignOut(req, rec))

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
