// Package pages renders full pages.
package pages

import (
	"github.com/mcoot/guessgame/internal/model"
	"github.com/mcoot/guessgame/internal/web/templates/layout"
)

// HomeData is the data for the game page
type HomeData struct {
	layout.PageData
	Game model.GameSession
}

// MessageStyle picks the message box style for an outcome
func MessageStyle(o model.Outcome) string {
	switch o {
	case model.OutcomeWon:
		return "success"
	case model.OutcomeRemoteError:
		return "error"
	default:
		return "info"
	}
}
