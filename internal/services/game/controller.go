package game

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/mcoot/guessgame/internal/model"
	"github.com/mcoot/guessgame/internal/session"
)

// Messages shown to the player
const (
	MsgInvalidGuess      = "Please enter a valid number"
	MsgStartFailedPrefix = "Error starting game: "
	MsgGuessFailedPrefix = "Error submitting guess: "
)

// Controller runs the guessing game for authenticated sessions
type Controller struct {
	registry *session.Registry
	logger   *slog.Logger
}

// NewController creates a new game Controller
func NewController(registry *session.Registry, logger *slog.Logger) *Controller {
	return &Controller{
		registry: registry,
		logger:   logger,
	}
}

// State returns the current state of sid for rendering
func (c *Controller) State(ctx context.Context, sid model.SessionID) session.State {
	return c.registry.Get(sid)
}

// StartGame asks the game service for a new game.
// A failed request leaves the current game as it was and records the error message.
func (c *Controller) StartGame(ctx context.Context, sid model.SessionID) (session.State, error) {
	return c.registry.Update(sid, func(st session.State) (session.State, error) {
		if !st.Authenticated || st.Proxy == nil {
			return st, model.ErrNotAuthenticated
		}

		game := st.Game
		result, err := st.Proxy.StartGame(ctx)
		if err != nil {
			c.logger.Warn("start game failed",
				slog.String("session_id", string(sid)),
				slog.String("error", err.Error()),
			)
			game.LastMessage = MsgStartFailedPrefix + err.Error()
			game.LastOutcome = model.OutcomeRemoteError
			return st.WithGame(game), nil
		}

		game.Active = true
		game.LastMessage = result.Text
		game.LastOutcome = result.Outcome
		game.PendingGuess = ""

		c.logger.Info("game started",
			slog.String("session_id", string(sid)),
			slog.String("principal", string(st.Principal())),
		)
		return st.WithGame(game), nil
	})
}

// SubmitGuess validates raw and, if it is a number, sends it to the game service.
// Invalid input never reaches the service.
func (c *Controller) SubmitGuess(ctx context.Context, sid model.SessionID, raw string) (session.State, error) {
	return c.registry.Update(sid, func(st session.State) (session.State, error) {
		if !st.Authenticated || st.Proxy == nil {
			return st, model.ErrNotAuthenticated
		}

		game := st.Game
		n, err := ParseGuess(raw)
		if err != nil {
			game.LastMessage = MsgInvalidGuess
			game.LastOutcome = model.OutcomeValidationError
			game.PendingGuess = raw
			return st.WithGame(game), nil
		}

		result, err := st.Proxy.Guess(ctx, n)
		game.PendingGuess = ""
		if err != nil {
			c.logger.Warn("guess failed",
				slog.String("session_id", string(sid)),
				slog.Float64("guess", n),
				slog.String("error", err.Error()),
			)
			game.LastMessage = MsgGuessFailedPrefix + err.Error()
			game.LastOutcome = model.OutcomeRemoteError
			return st.WithGame(game), nil
		}

		game.LastMessage = result.Text
		game.LastOutcome = result.Outcome
		if result.Outcome == model.OutcomeWon {
			game.Active = false
			c.logger.Info("game won",
				slog.String("session_id", string(sid)),
				slog.String("principal", string(st.Principal())),
			)
		}
		return st.WithGame(game), nil
	})
}

// ParseGuess reads a guess the way a number input would: surrounding space is ignored,
// and the value must be a finite number
func ParseGuess(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, model.ErrInvalidGuess
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, model.ErrInvalidGuess
	}
	return n, nil
}
