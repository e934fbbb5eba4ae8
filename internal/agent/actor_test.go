package agent_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/guessgame/internal/agent"
	"github.com/mcoot/guessgame/internal/agent/agenttest"
	"github.com/mcoot/guessgame/internal/model"
	"github.com/mcoot/guessgame/internal/testutil"
)

func newActor(t *testing.T, replica *agenttest.Service) *agent.Actor {
	t.Helper()
	identity := model.Identity{Principal: "principal-bob", AccessToken: "token-bob"}
	actor, err := agent.NewFactory(replica.Config(), testutil.NopLogger()).Build(context.Background(), identity)
	require.NoError(t, err)
	return actor
}

func TestActorStartGame(t *testing.T) {
	replica := agenttest.New(t)
	actor := newActor(t, replica)

	result, err := actor.StartGame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeContinue, result.Outcome)
	assert.Equal(t, agenttest.DefaultStartReply, result.Text)

	calls := replica.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, agent.MethodStartGame, calls[0].Method)
}

func TestActorGuess(t *testing.T) {
	replica := agenttest.New(t)
	replica.QueueReply(agent.MethodGuess, "Too high! Try again.")
	actor := newActor(t, replica)

	result, err := actor.Guess(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeContinue, result.Outcome)
	assert.Equal(t, "Too high! Try again.", result.Text)

	calls := replica.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, agent.MethodGuess, calls[0].Method)
	require.NotNil(t, calls[0].Arg)
	assert.InDelta(t, 50.0, *calls[0].Arg, 0)
}

func TestActorGuessWon(t *testing.T) {
	replica := agenttest.New(t)
	replica.QueueReply(agent.MethodGuess, "Congratulations! You guessed it in 4 tries.")
	actor := newActor(t, replica)

	result, err := actor.Guess(context.Background(), 37)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeWon, result.Outcome)
}

func TestActorGuessReject(t *testing.T) {
	replica := agenttest.New(t)
	replica.QueueReject(agent.MethodGuess, "canister_error", "No active game")
	actor := newActor(t, replica)

	_, err := actor.Guess(context.Background(), 10)
	require.Error(t, err)
	assert.Equal(t, "No active game", err.Error())
}

func TestNewActorValidation(t *testing.T) {
	replica := agenttest.New(t)
	identity := model.Identity{Principal: "p", AccessToken: "t"}
	a, err := agent.NewHTTPAgent(identity, replica.URL(), nil)
	require.NoError(t, err)

	_, err = agent.NewActor(nil, agenttest.CanisterID)
	require.ErrorIs(t, err, model.ErrNotAuthenticated)

	_, err = agent.NewActor(a, agenttest.CanisterID)
	require.ErrorIs(t, err, model.ErrRootKeyUnavailable)

	a.SetRootKey(replica.RootKey())
	_, err = agent.NewActor(a, "")
	require.Error(t, err)

	actor, err := agent.NewActor(a, agenttest.CanisterID)
	require.NoError(t, err)
	assert.Equal(t, model.Principal("p"), actor.Principal())
}
