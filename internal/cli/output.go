package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mcoot/guessgame/internal/model"
	"github.com/mcoot/guessgame/internal/session"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
	errW   io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w, errW io.Writer) *Output {
	return &Output{format: format, w: w, errW: errW}
}

// StateView is the rendered form of a session state
type StateView struct {
	Authenticated bool   `json:"authenticated"`
	Principal     string `json:"principal,omitempty"`
	GameActive    bool   `json:"game_active"`
	Message       string `json:"message,omitempty"`
	Outcome       string `json:"outcome,omitempty"`

	outcome model.Outcome
}

// HealthResult is the /healthz response
type HealthResult struct {
	Status string `json:"status"`
}

// NewStateView renders st
func NewStateView(st session.State) StateView {
	v := StateView{
		Authenticated: st.Authenticated,
		Principal:     string(st.Principal()),
		GameActive:    st.Game.Active,
		Message:       st.Game.LastMessage,
		outcome:       st.Game.LastOutcome,
	}
	if v.Message != "" {
		v.Outcome = st.Game.LastOutcome.String()
	}
	return v
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if st, ok := data.(session.State); ok {
		data = NewStateView(st)
	}
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		_, _ = fmt.Fprintln(o.errW, string(data))
	} else {
		_, _ = fmt.Fprintf(o.errW, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case StateView:
		o.printState(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printState(v StateView) {
	if !v.Authenticated {
		_, _ = fmt.Fprintln(o.w, "Welcome to Number Guessing Game!")
		_, _ = fmt.Fprintln(o.w, "Please login to play. Type 'login' or 'quit'.")
		return
	}

	_, _ = fmt.Fprintf(o.w, "Logged in as %s\n", v.Principal)
	if v.Message != "" {
		_, _ = fmt.Fprintf(o.w, "%s %s\n", outcomeMarker(v.outcome), v.Message)
	}
	if v.GameActive {
		_, _ = fmt.Fprintln(o.w, "Game in Progress. Enter a number between 1 and 100 ('guess <n>' or just '<n>').")
	} else {
		_, _ = fmt.Fprintln(o.w, "Type 'start' to start a new game, 'logout' or 'quit'.")
	}
}

func outcomeMarker(outcome model.Outcome) string {
	switch outcome {
	case model.OutcomeWon:
		return "[*]"
	case model.OutcomeRemoteError, model.OutcomeValidationError:
		return "[!]"
	default:
		return "[-]"
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	_, _ = fmt.Fprintf(o.w, "Status: %s\n", h.Status)
}
