package handler

import (
	"net/http"

	"github.com/mcoot/guessgame/internal/identity"
	"github.com/mcoot/guessgame/internal/web/middleware"
	"github.com/mcoot/guessgame/internal/web/templates/layout"
	"github.com/mcoot/guessgame/internal/web/templates/pages"
)

// HomeHandler handles the game page
type HomeHandler struct {
	manager *identity.Manager
}

// NewHomeHandler creates a new HomeHandler
func NewHomeHandler(manager *identity.Manager) *HomeHandler {
	return &HomeHandler{manager: manager}
}

// Home renders the login gate or the game for the browser session
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	st := h.manager.State(middleware.GetSessionID(r.Context()))

	data := pages.HomeData{
		PageData: layout.PageData{
			Title:         "Play",
			Authenticated: st.Authenticated,
			Principal:     st.Principal(),
			Flash:         middleware.GetFlash(r.Context()),
		},
		Game: st.Game,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pages.Home(data).Render(r.Context(), w); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// Health reports that the server is up
func (h *HomeHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
