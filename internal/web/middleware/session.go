package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mcoot/guessgame/internal/dependencies/random"
	"github.com/mcoot/guessgame/internal/identity"
	"github.com/mcoot/guessgame/internal/model"
)

type contextKey string

const (
	sessionIDContextKey contextKey = "sessionID"

	// SessionCookieName holds the browser session ID
	SessionCookieName = "sid"

	sessionIDLength = 32
)

// MsgServiceUnavailable prefixes errors connecting an authenticated session to the game service
const MsgServiceUnavailable = "Could not connect to the game service: "

// GetSessionID retrieves the browser session ID from the request context
func GetSessionID(ctx context.Context) model.SessionID {
	sid, _ := ctx.Value(sessionIDContextKey).(model.SessionID)
	return sid
}

// SessionOptions configures the browser session cookie
type SessionOptions struct {
	Secure bool
	MaxAge int // seconds
}

// BrowserSession returns middleware that identifies the browser by its sid cookie,
// issuing one if needed, and initializes the session's identity state.
// Requires the flash middleware to be applied first.
func BrowserSession(manager *identity.Manager, rnd random.Random, opts SessionOptions, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := sessionIDFromCookie(r)
			if sid == "" {
				sid = model.SessionID(rnd.String(sessionIDLength, random.Alphanumeric))
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    string(sid),
					Path:     "/",
					MaxAge:   opts.MaxAge,
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), sessionIDContextKey, sid)

			if _, err := manager.Initialize(ctx, sid); err != nil {
				logger.Error("failed to initialize session",
					slog.String("session_id", string(sid)),
					slog.String("error", err.Error()),
				)
				if errors.Is(err, model.ErrRootKeyUnavailable) {
					ctx = WithFlash(ctx, "error", MsgServiceUnavailable+err.Error())
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionIDFromCookie(r *http.Request) model.SessionID {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || !validSessionID(cookie.Value) {
		return ""
	}
	return model.SessionID(cookie.Value)
}

func validSessionID(v string) bool {
	if v == "" || len(v) > 128 {
		return false
	}
	for _, c := range v {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
