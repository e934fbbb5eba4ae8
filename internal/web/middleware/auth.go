package middleware

import (
	"net/http"

	"github.com/mcoot/guessgame/internal/identity"
)

// RequireAuth returns middleware that requires an authenticated session
// Redirects to the login gate if not authenticated. Requires BrowserSession first.
func RequireAuth(manager *identity.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !manager.State(GetSessionID(r.Context())).Authenticated {
				SetFlash(w, "error", "Please login to play")
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
