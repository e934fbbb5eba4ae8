package model

import "strings"

// Outcome classifies what a game action produced
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeContinue
	OutcomeWon
	OutcomeValidationError
	OutcomeRemoteError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeContinue:
		return "continue"
	case OutcomeWon:
		return "won"
	case OutcomeValidationError:
		return "validation_error"
	case OutcomeRemoteError:
		return "remote_error"
	default:
		return "none"
	}
}

// VictoryMarker is the substring the game service puts in a winning reply
const VictoryMarker = "Congratulations"

// Result is a classified reply from the game service
type Result struct {
	Outcome Outcome
	Text    string
}

// ClassifyReply turns raw reply text into a Result
func ClassifyReply(text string) Result {
	if strings.Contains(text, VictoryMarker) {
		return Result{Outcome: OutcomeWon, Text: text}
	}
	return Result{Outcome: OutcomeContinue, Text: text}
}

// GameSession is the UI-facing state of the guessing game for one browser session
type GameSession struct {
	Active       bool
	LastMessage  string
	LastOutcome  Outcome
	PendingGuess string // raw input echoed back into the guess field
}
