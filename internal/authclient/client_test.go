package authclient

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"golang.org/x/oauth2"

	"github.com/mcoot/guessgame/internal/authclient/providertest"
	"github.com/mcoot/guessgame/internal/dependencies/mocks"
	"github.com/mcoot/guessgame/internal/model"
	"github.com/mcoot/guessgame/internal/storage/memory"
	"github.com/mcoot/guessgame/internal/testutil"
)

type ClientSuite struct {
	suite.Suite
	storage  *memory.Storage
	clock    *mocks.MockClock
	random   *mocks.MockRandom
	provider *providertest.Provider
	service  *Service
	ctx      context.Context
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.provider = providertest.New(s.T())

	cfg := DefaultConfig()
	cfg.IdentityProvider = s.provider.URL()
	cfg.ClientID = "guessgame"
	cfg.RedirectURL = "http://localhost:8080/auth/callback"

	s.service = New(s.storage, s.clock, s.random, cfg, testutil.NopLogger()).WithHTTPClient(s.provider.Client())
	s.ctx = context.Background()
}

func (s *ClientSuite) callback(q url.Values) Callback {
	return Callback{
		State:            q.Get("state"),
		Code:             q.Get("code"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
}

func (s *ClientSuite) login(client *Client) (model.Identity, error) {
	s.random.QueueString("STATE-" + string(client.SessionID()))
	authURL, err := client.LoginURL(s.ctx)
	s.Require().NoError(err)

	q, err := s.provider.Approve(authURL)
	s.Require().NoError(err)

	return client.HandleCallback(s.ctx, s.callback(q))
}

// LoginURL tests

func (s *ClientSuite) TestLoginURLPointsAtProvider() {
	s.random.QueueString("STATE1")
	client := s.service.Create("sid-1")

	authURL, err := client.LoginURL(s.ctx)
	s.Require().NoError(err)

	u, err := url.Parse(authURL)
	s.Require().NoError(err)
	s.Equal(s.provider.URL()+"/authorize", u.Scheme+"://"+u.Host+u.Path)
	s.Equal("STATE1", u.Query().Get("state"))
	s.Equal("guessgame", u.Query().Get("client_id"))
	s.Equal("S256", u.Query().Get("code_challenge_method"))
	s.NotEmpty(u.Query().Get("code_challenge"))
}

func (s *ClientSuite) TestLoginURLStoresPendingLogin() {
	s.random.QueueString("STATE1")
	client := s.service.Create("sid-1")

	_, err := client.LoginURL(s.ctx)
	s.Require().NoError(err)

	pending, err := s.storage.TakePendingLogin(s.ctx, "STATE1")
	s.Require().NoError(err)
	s.Equal(model.SessionID("sid-1"), pending.SessionID)
	s.NotEmpty(pending.CodeVerifier)
	s.Equal(s.clock.Now().Add(10*time.Minute), pending.ExpiresAt)
}

// HandleCallback tests

func (s *ClientSuite) TestLoginSucceeds() {
	client := s.service.Create("sid-1")

	id, err := s.login(client)
	s.Require().NoError(err)

	s.Equal(model.Principal("principal-alice"), id.Principal)
	s.NotEmpty(id.AccessToken)
	s.True(id.ExpiresAt.After(s.clock.Now()))
}

func (s *ClientSuite) TestLoginPersistsDelegation() {
	client := s.service.Create("sid-1")
	_, err := s.login(client)
	s.Require().NoError(err)

	d, err := s.storage.GetDelegation(s.ctx, "sid-1")
	s.Require().NoError(err)
	s.Equal(model.Principal("principal-alice"), d.Principal)
	s.NotEmpty(d.IDToken)
}

func (s *ClientSuite) TestLoginExpiryFollowsTokenLifetime() {
	s.provider.SetExpiresIn(600)
	client := s.service.Create("sid-1")

	id, err := s.login(client)
	s.Require().NoError(err)

	s.Equal(s.clock.Now().Add(10*time.Minute), id.ExpiresAt)
}

func (s *ClientSuite) TestLoginExpiryCappedAtMaxTimeToLive() {
	s.provider.SetExpiresIn(int((48 * time.Hour).Seconds()))
	client := s.service.Create("sid-1")

	id, err := s.login(client)
	s.Require().NoError(err)

	s.Equal(s.clock.Now().Add(s.service.cfg.MaxTimeToLive), id.ExpiresAt)
}

func TestTokenLifetime(t *testing.T) {
	tests := []struct {
		name  string
		token *oauth2.Token
		want  time.Duration
	}{
		{"json expires_in", &oauth2.Token{ExpiresIn: 600, Expiry: time.Now().Add(time.Hour)}, 10 * time.Minute},
		{"form expires_in", (&oauth2.Token{}).WithExtra(url.Values{"expires_in": {"900"}}), 15 * time.Minute},
		{"wall clock expiry ignored", &oauth2.Token{Expiry: time.Now().Add(time.Hour)}, 0},
		{"none", &oauth2.Token{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenLifetime(tt.token))
		})
	}
}

func (s *ClientSuite) TestLoginFailsOnProviderError() {
	s.random.QueueString("STATE1")
	client := s.service.Create("sid-1")
	authURL, _ := client.LoginURL(s.ctx)

	q, err := s.provider.Deny(authURL)
	s.Require().NoError(err)

	_, err = client.HandleCallback(s.ctx, s.callback(q))

	var loginErr *LoginError
	s.Require().ErrorAs(err, &loginErr)
	s.Equal("access_denied", loginErr.Code)
	s.Contains(err.Error(), "user cancelled login")

	// The pending login is consumed
	_, err = s.storage.TakePendingLogin(s.ctx, "STATE1")
	s.ErrorIs(err, model.ErrPendingLoginNotFound)
}

func (s *ClientSuite) TestLoginFailsWithUnknownState() {
	client := s.service.Create("sid-1")

	_, err := client.HandleCallback(s.ctx, Callback{State: "nope", Code: "code-1"})

	var loginErr *LoginError
	s.Require().ErrorAs(err, &loginErr)
	s.Equal("invalid_state", loginErr.Code)
}

func (s *ClientSuite) TestLoginFailsWithMissingCode() {
	client := s.service.Create("sid-1")

	_, err := client.HandleCallback(s.ctx, Callback{State: "STATE1"})

	var loginErr *LoginError
	s.Require().ErrorAs(err, &loginErr)
	s.Equal("invalid_request", loginErr.Code)
}

func (s *ClientSuite) TestLoginFailsWhenStartedByAnotherSession() {
	s.random.QueueString("STATE1")
	authURL, _ := s.service.Create("sid-1").LoginURL(s.ctx)
	q, _ := s.provider.Approve(authURL)

	_, err := s.service.Create("sid-2").HandleCallback(s.ctx, s.callback(q))

	var loginErr *LoginError
	s.Require().ErrorAs(err, &loginErr)
	s.Equal("invalid_state", loginErr.Code)
}

func (s *ClientSuite) TestLoginFailsWhenPendingLoginExpired() {
	s.random.QueueString("STATE1")
	client := s.service.Create("sid-1")
	authURL, _ := client.LoginURL(s.ctx)
	q, _ := s.provider.Approve(authURL)

	s.clock.Advance(11 * time.Minute)

	_, err := client.HandleCallback(s.ctx, s.callback(q))
	var loginErr *LoginError
	s.Require().ErrorAs(err, &loginErr)
	s.Equal("invalid_state", loginErr.Code)
}

func (s *ClientSuite) TestLoginFailsWhenExchangeFails() {
	s.provider.FailTokenRequests()
	client := s.service.Create("sid-1")

	_, err := s.login(client)
	s.Require().Error(err)
	s.Contains(err.Error(), "exchange authorization code")

	ok, err := client.IsAuthenticated(s.ctx)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ClientSuite) TestLoginFailsWithoutIDToken() {
	s.provider.OmitIDToken()
	client := s.service.Create("sid-1")

	_, err := s.login(client)

	var loginErr *LoginError
	s.Require().ErrorAs(err, &loginErr)
	s.Equal("invalid_token", loginErr.Code)
}

// IsAuthenticated / GetIdentity tests

func (s *ClientSuite) TestIsAuthenticatedFalseWithoutLogin() {
	ok, err := s.service.Create("sid-1").IsAuthenticated(s.ctx)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ClientSuite) TestIsAuthenticatedAfterLogin() {
	client := s.service.Create("sid-1")
	_, _ = s.login(client)

	// A fresh client for the same session sees the stored delegation
	ok, err := s.service.Create("sid-1").IsAuthenticated(s.ctx)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *ClientSuite) TestIdentityExpires() {
	client := s.service.Create("sid-1")
	_, _ = s.login(client)

	s.clock.Advance(9 * time.Hour)

	_, err := client.GetIdentity(s.ctx)
	s.ErrorIs(err, model.ErrDelegationExpired)

	ok, err := client.IsAuthenticated(s.ctx)
	s.Require().NoError(err)
	s.False(ok)
}

// Logout tests

func (s *ClientSuite) TestLogoutClearsDelegation() {
	client := s.service.Create("sid-1")
	_, _ = s.login(client)

	s.Require().NoError(client.Logout(s.ctx))

	ok, err := client.IsAuthenticated(s.ctx)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ClientSuite) TestLogoutLeavesOtherSessions() {
	alice := s.service.Create("sid-1")
	bob := s.service.Create("sid-2")
	_, _ = s.login(alice)
	_, _ = s.login(bob)

	s.Require().NoError(alice.Logout(s.ctx))

	ok, _ := bob.IsAuthenticated(s.ctx)
	s.True(ok)
}
