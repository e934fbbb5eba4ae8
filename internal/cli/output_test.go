package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/guessgame/internal/model"
	"github.com/mcoot/guessgame/internal/session"
)

func TestNewStateView(t *testing.T) {
	st := session.State{
		Authenticated: true,
		Identity:      model.Identity{Principal: "principal-bob"},
		Game: model.GameSession{
			Active:      true,
			LastMessage: "Too low! Try again.",
			LastOutcome: model.OutcomeContinue,
		},
	}

	v := NewStateView(st)
	assert.True(t, v.Authenticated)
	assert.Equal(t, "principal-bob", v.Principal)
	assert.True(t, v.GameActive)
	assert.Equal(t, "Too low! Try again.", v.Message)
	assert.Equal(t, "continue", v.Outcome)
}

func TestPrintStateJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	out := NewOutput("json", &stdout, &stderr)

	out.Print(session.Initial())

	var v StateView
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &v))
	assert.False(t, v.Authenticated)
	assert.Empty(t, v.Outcome)
}

func TestPrintErrorJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	out := NewOutput("json", &stdout, &stderr)

	out.PrintError(errors.New("boom"))

	assert.Empty(t, stdout.String())
	assert.JSONEq(t, `{"error":{"message":"boom"}}`, stderr.String())
}

func TestPrintHealthText(t *testing.T) {
	var stdout, stderr bytes.Buffer
	NewOutput("text", &stdout, &stderr).Print(HealthResult{Status: "ok"})

	assert.Equal(t, "Status: ok\n", stdout.String())
}
