package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/guessgame/internal/dependencies/mocks"
	"github.com/mcoot/guessgame/internal/model"
)

type stubProxy struct{}

func (stubProxy) StartGame(context.Context) (model.Result, error) {
	return model.Result{Outcome: model.OutcomeContinue, Text: "started"}, nil
}

func (stubProxy) Guess(context.Context, float64) (model.Result, error) {
	return model.Result{Outcome: model.OutcomeContinue, Text: "guessed"}, nil
}

type RegistrySuite struct {
	suite.Suite
	clock    *mocks.MockClock
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.registry = NewRegistry(s.clock)
}

func (s *RegistrySuite) TestGetUnknownReturnsInitial() {
	st := s.registry.Get("nobody")
	s.False(st.Authenticated)
	s.Nil(st.Proxy)
	s.False(st.Game.Active)
	s.Equal(0, s.registry.Len())
}

func (s *RegistrySuite) TestEnsureRunsInitOnce() {
	calls := 0
	init := func() (State, error) {
		calls++
		return Authenticated(model.Identity{Principal: "alice"}, stubProxy{}), nil
	}

	st, err := s.registry.Ensure("sid-1", init)
	s.Require().NoError(err)
	s.True(st.Authenticated)

	st, err = s.registry.Ensure("sid-1", init)
	s.Require().NoError(err)
	s.True(st.Authenticated)
	s.Equal(1, calls)
}

func (s *RegistrySuite) TestEnsureFailureRetriesNextTime() {
	boom := errors.New("boom")
	_, err := s.registry.Ensure("sid-1", func() (State, error) { return State{}, boom })
	s.ErrorIs(err, boom)
	s.False(s.registry.Get("sid-1").Authenticated)

	st, err := s.registry.Ensure("sid-1", func() (State, error) { return Initial(), nil })
	s.Require().NoError(err)
	s.False(st.Authenticated)
}

func (s *RegistrySuite) TestUpdateErrorKeepsState() {
	s.registry.Set("sid-1", Authenticated(model.Identity{Principal: "alice"}, stubProxy{}))

	st, err := s.registry.Update("sid-1", func(State) (State, error) {
		return Initial(), model.ErrNotAuthenticated
	})
	s.ErrorIs(err, model.ErrNotAuthenticated)
	s.True(st.Authenticated)
	s.True(s.registry.Get("sid-1").Authenticated)
}

func (s *RegistrySuite) TestUpdateReplacesState() {
	s.registry.Set("sid-1", Authenticated(model.Identity{Principal: "alice"}, stubProxy{}))

	st, err := s.registry.Update("sid-1", func(cur State) (State, error) {
		return cur.WithGame(model.GameSession{Active: true, LastMessage: "go"}), nil
	})
	s.Require().NoError(err)
	s.True(st.Game.Active)
	s.Equal("go", s.registry.Get("sid-1").Game.LastMessage)
}

func (s *RegistrySuite) TestWithGameDoesNotMutateOriginal() {
	original := Authenticated(model.Identity{Principal: "alice"}, stubProxy{})
	changed := original.WithGame(model.GameSession{Active: true})

	s.False(original.Game.Active)
	s.True(changed.Game.Active)
}

func (s *RegistrySuite) TestPrincipalOnlyWhenAuthenticated() {
	s.Equal(model.Principal(""), Initial().Principal())
	s.Equal(model.Principal("alice"), Authenticated(model.Identity{Principal: "alice"}, stubProxy{}).Principal())
}

func (s *RegistrySuite) TestUpdatesAreSerialised() {
	s.registry.Set("sid-1", Authenticated(model.Identity{Principal: "alice"}, stubProxy{}))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.registry.Update("sid-1", func(cur State) (State, error) {
				g := cur.Game
				g.LastMessage += "x"
				return cur.WithGame(g), nil
			})
		}()
	}
	wg.Wait()

	s.Len(s.registry.Get("sid-1").Game.LastMessage, 50)
}

func (s *RegistrySuite) TestPruneRemovesIdleSessions() {
	s.registry.Set("old", Initial())
	s.clock.Advance(2 * time.Hour)
	s.registry.Set("fresh", Initial())

	removed := s.registry.Prune(time.Hour)
	s.Equal(1, removed)
	s.Equal(1, s.registry.Len())
}

func (s *RegistrySuite) TestDelete() {
	s.registry.Set("sid-1", Authenticated(model.Identity{Principal: "alice"}, stubProxy{}))
	s.registry.Delete("sid-1")

	s.False(s.registry.Get("sid-1").Authenticated)
	s.Equal(0, s.registry.Len())
}
