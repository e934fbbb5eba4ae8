package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mcoot/guessgame/internal/authclient"
	"github.com/mcoot/guessgame/internal/identity"
	"github.com/mcoot/guessgame/internal/model"
	"github.com/mcoot/guessgame/internal/web/middleware"
)

// MsgLoginFailed prefixes login failures shown to the user
const MsgLoginFailed = "Login failed: "

// AuthHandler handles login and logout
type AuthHandler struct {
	manager *identity.Manager
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(manager *identity.Manager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		manager: manager,
		logger:  logger,
	}
}

// Login sends the browser to the identity provider
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sid := middleware.GetSessionID(r.Context())
	if h.manager.State(sid).Authenticated {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	authURL, err := h.manager.BeginLogin(r.Context(), sid)
	if err != nil {
		middleware.SetFlash(w, "error", MsgLoginFailed+err.Error())
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, authURL, http.StatusSeeOther)
}

// Callback completes a login when the identity provider redirects back
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cb := authclient.Callback{
		State:            q.Get("state"),
		Code:             q.Get("code"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}

	st, err := h.manager.CompleteLogin(r.Context(), middleware.GetSessionID(r.Context()), cb)
	switch {
	case err == nil:
		middleware.SetFlash(w, "success", "Welcome, "+string(st.Principal())+"!")
	case errors.Is(err, model.ErrRootKeyUnavailable):
		middleware.SetFlash(w, "error", middleware.MsgServiceUnavailable+err.Error())
	default:
		middleware.SetFlash(w, "error", MsgLoginFailed+err.Error())
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout clears the identity and resets the game
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, err := h.manager.Logout(r.Context(), middleware.GetSessionID(r.Context())); err != nil {
		h.logger.Error("logout did not clear delegation", slog.String("error", err.Error()))
	}

	middleware.SetFlash(w, "info", "You have been logged out")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
