package auth

import (
	"encoding/json"
	"net/http"
)

// RequireAdmin wraps a handler so it only runs for requests carrying a
// valid admin session cookie.
func RequireAdmin(store *SessionStore, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !store.IsAuthenticated(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "unauthorized",
				"message": "Admin session required",
			})
			return
		}
		next(w, r)
	}
}
