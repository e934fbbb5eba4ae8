package middleware

import (
	"net/http"

	"github.com/mcoot/guessgame/internal/middleware"
)

// Tracing creates request tracing middleware for the web interface
func Tracing() func(http.Handler) http.Handler {
	return middleware.Tracing()
}
