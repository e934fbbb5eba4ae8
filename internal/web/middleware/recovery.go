package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/guessgame/internal/middleware"
	"github.com/mcoot/guessgame/internal/web/templates/layout"
	"github.com/mcoot/guessgame/internal/web/templates/pages"
)

// MsgInternalError is shown when a page fails unexpectedly
const MsgInternalError = "Something went wrong. Please try again later."

// Recovery creates panic recovery middleware for the web interface.
// A panic renders an error page in the normal layout.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, webPanicHandler)
}

func webPanicHandler(w http.ResponseWriter, r *http.Request, _ any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)

	page := pages.Error(layout.PageData{
		Title: "Error",
		Flash: &layout.FlashMessage{Type: "error", Message: MsgInternalError},
	})
	_ = page.Render(r.Context(), w)
}
