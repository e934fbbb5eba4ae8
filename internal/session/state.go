// Package session holds the per-browser-session state of the game frontend.
package session

import (
	"context"

	"github.com/mcoot/guessgame/internal/model"
)

// Proxy is the remote game service as seen by a session
type Proxy interface {
	StartGame(ctx context.Context) (model.Result, error)
	Guess(ctx context.Context, n float64) (model.Result, error)
}

// State is an immutable snapshot of one browser session.
// Transitions build a new value; a Proxy is present iff the session is authenticated.
type State struct {
	Authenticated bool
	Identity      model.Identity
	Proxy         Proxy
	Game          model.GameSession
}

// Initial returns the unauthenticated state with no game
func Initial() State {
	return State{}
}

// Authenticated returns a fresh authenticated state bound to proxy
func Authenticated(identity model.Identity, proxy Proxy) State {
	return State{
		Authenticated: true,
		Identity:      identity,
		Proxy:         proxy,
	}
}

// WithGame returns a copy of s with the game replaced
func (s State) WithGame(game model.GameSession) State {
	s.Game = game
	return s
}

// Principal returns the principal of an authenticated session, or ""
func (s State) Principal() model.Principal {
	if !s.Authenticated {
		return ""
	}
	return s.Identity.Principal
}
