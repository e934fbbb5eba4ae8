package factory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mcoot/guessgame/internal/agent/agenttest"
	"github.com/mcoot/guessgame/internal/authclient"
	"github.com/mcoot/guessgame/internal/authclient/providertest"
	"github.com/mcoot/guessgame/internal/dependencies/mocks"
	"github.com/mcoot/guessgame/internal/identity"
	"github.com/mcoot/guessgame/internal/model"
	"github.com/mcoot/guessgame/internal/storage/memory"
	"github.com/mcoot/guessgame/internal/testutil"
)

// TestRedirectURL is the callback URL the test app registers with the fake provider
const TestRedirectURL = "http://localhost" + identity.CallbackPath

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom

	// Fakes for the external services
	Provider *providertest.Provider
	Replica  *agenttest.Service
}

// NewTestApp creates an App wired to a fake identity provider and a fake game service
func NewTestApp(t *testing.T) *TestApp {
	t.Helper()

	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	provider := providertest.New(t)
	replica := agenttest.New(t)

	authCfg := authclient.DefaultConfig()
	authCfg.IdentityProvider = provider.URL()
	authCfg.ClientID = "guessgame-test"
	authCfg.RedirectURL = TestRedirectURL

	app := newWithDependencies(store, mockClock, mockRandom, authCfg, replica.Config(), testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Provider:   provider,
		Replica:    replica,
	}
}

// Login runs the full provider login for sid
func (t *TestApp) Login(ctx context.Context, sid model.SessionID) error {
	authURL, err := t.IdentityManager.BeginLogin(ctx, sid)
	if err != nil {
		return err
	}

	q, err := t.Provider.Approve(authURL)
	if err != nil {
		return fmt.Errorf("approve login: %w", err)
	}

	_, err = t.IdentityManager.CompleteLogin(ctx, sid, authclient.Callback{
		State: q.Get("state"),
		Code:  q.Get("code"),
	})
	return err
}
