package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/guessgame/internal/middleware"
)

// Logging creates request logging middleware for the web interface.
// Requests from a browser that already holds a session are tagged with its id.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger, sessionAttr)
}

func sessionAttr(r *http.Request) (slog.Attr, bool) {
	sid := sessionIDFromCookie(r)
	if sid == "" {
		return slog.Attr{}, false
	}
	return slog.String("session_id", string(sid)), true
}
