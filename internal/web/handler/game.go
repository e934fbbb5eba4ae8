package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mcoot/guessgame/internal/model"
	"github.com/mcoot/guessgame/internal/services/game"
	"github.com/mcoot/guessgame/internal/web/middleware"
)

// GameHandler handles game actions
// Results are stored in the session and shown after the redirect back to the game page
type GameHandler struct {
	controller *game.Controller
	logger     *slog.Logger
}

// NewGameHandler creates a new GameHandler
func NewGameHandler(controller *game.Controller, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		controller: controller,
		logger:     logger,
	}
}

// Start begins a new game
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	_, err := h.controller.StartGame(r.Context(), middleware.GetSessionID(r.Context()))
	h.finish(w, r, err)
}

// Guess submits the guess form
func (h *GameHandler) Guess(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		middleware.SetFlash(w, "error", "Invalid form data")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	_, err := h.controller.SubmitGuess(r.Context(), middleware.GetSessionID(r.Context()), r.FormValue("guess"))
	h.finish(w, r, err)
}

func (h *GameHandler) finish(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNotAuthenticated):
		middleware.SetFlash(w, "error", "Please login to play")
	default:
		h.logger.Error("game action failed", slog.String("error", err.Error()))
		middleware.SetFlash(w, "error", "Something went wrong")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
