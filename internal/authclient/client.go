package authclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/mcoot/guessgame/internal/dependencies/clock"
	"github.com/mcoot/guessgame/internal/dependencies/random"
	"github.com/mcoot/guessgame/internal/model"
	"github.com/mcoot/guessgame/internal/storage"
)

// Callback carries the query parameters the identity provider redirected back with
type Callback struct {
	State            string
	Code             string
	Error            string
	ErrorDescription string
}

// Service creates authentication clients bound to browser sessions
type Service struct {
	storage    storage.Storage
	clock      clock.Clock
	random     random.Random
	logger     *slog.Logger
	cfg        Config
	oauth      *oauth2.Config
	httpClient *http.Client
}

// New creates a new authentication client Service
func New(storage storage.Storage, clock clock.Clock, random random.Random, cfg Config, logger *slog.Logger) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		storage: storage,
		clock:   clock,
		random:  random,
		logger:  logger,
		cfg:     cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
	}
}

// WithHTTPClient sets the client used for token exchange
func (s *Service) WithHTTPClient(c *http.Client) *Service {
	s.httpClient = c
	return s
}

// IdentityProvider returns the configured provider base URL
func (s *Service) IdentityProvider() string {
	return s.cfg.IdentityProvider
}

// Create returns the authentication client for a browser session
func (s *Service) Create(sid model.SessionID) *Client {
	return &Client{sid: sid, svc: s}
}

// Client is the authentication client of one browser session
type Client struct {
	sid model.SessionID
	svc *Service
}

// SessionID returns the browser session the client belongs to
func (c *Client) SessionID() model.SessionID {
	return c.sid
}

// IsAuthenticated reports whether a valid delegation exists for the session
func (c *Client) IsAuthenticated(ctx context.Context) (bool, error) {
	_, err := c.GetIdentity(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, model.ErrDelegationNotFound), errors.Is(err, model.ErrDelegationExpired):
		return false, nil
	default:
		return false, err
	}
}

// GetIdentity returns the identity of the current delegation
func (c *Client) GetIdentity(ctx context.Context) (model.Identity, error) {
	d, err := c.svc.storage.GetDelegation(ctx, c.sid)
	if err != nil {
		return model.Identity{}, err
	}

	id := d.Identity()
	if id.Expired(c.svc.clock.Now()) {
		_ = c.svc.storage.DeleteDelegation(ctx, c.sid)
		return model.Identity{}, model.ErrDelegationExpired
	}
	return id, nil
}

// LoginURL starts a login and returns the provider URL to send the user to
func (c *Client) LoginURL(ctx context.Context) (string, error) {
	now := c.svc.clock.Now()
	verifier := oauth2.GenerateVerifier()

	pending := &model.PendingLogin{
		State:        c.svc.random.String(32, random.Alphanumeric),
		SessionID:    c.sid,
		CodeVerifier: verifier,
		CreatedAt:    now,
		ExpiresAt:    now.Add(c.svc.cfg.PendingLoginTTL),
	}
	if pending.State == "" {
		return "", errors.New("could not generate login state")
	}

	if err := c.svc.storage.SavePendingLogin(ctx, pending); err != nil {
		return "", err
	}

	return c.svc.oauth.AuthCodeURL(pending.State, oauth2.S256ChallengeOption(verifier)), nil
}

// HandleCallback finishes a login from the provider's redirect
// It succeeds only when the provider returned a code that exchanges for an ID token
func (c *Client) HandleCallback(ctx context.Context, cb Callback) (model.Identity, error) {
	if cb.Error != "" {
		if cb.State != "" {
			_, _ = c.svc.storage.TakePendingLogin(ctx, cb.State)
		}
		return model.Identity{}, &LoginError{Code: cb.Error, Description: cb.ErrorDescription}
	}
	if cb.Code == "" || cb.State == "" {
		return model.Identity{}, &LoginError{Code: "invalid_request", Description: "missing code or state"}
	}

	pending, err := c.svc.storage.TakePendingLogin(ctx, cb.State)
	if err != nil {
		if errors.Is(err, model.ErrPendingLoginNotFound) {
			return model.Identity{}, &LoginError{Code: "invalid_state", Description: "login request not found or expired"}
		}
		return model.Identity{}, err
	}

	now := c.svc.clock.Now()
	if pending.SessionID != c.sid {
		return model.Identity{}, &LoginError{Code: "invalid_state", Description: "login was started by another session"}
	}
	if now.After(pending.ExpiresAt) {
		return model.Identity{}, &LoginError{Code: "invalid_state", Description: "login request expired"}
	}

	if c.svc.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.svc.httpClient)
	}
	token, err := c.svc.oauth.Exchange(ctx, cb.Code, oauth2.VerifierOption(pending.CodeVerifier))
	if err != nil {
		return model.Identity{}, fmt.Errorf("exchange authorization code: %w", err)
	}

	idToken, _ := token.Extra("id_token").(string)
	principal, err := principalFromIDToken(idToken)
	if err != nil {
		return model.Identity{}, err
	}

	delegation := &model.Delegation{
		SessionID:    c.sid,
		Principal:    principal,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		IDToken:      idToken,
		ExpiresAt:    c.expiry(now, token),
		CreatedAt:    now,
	}

	if err := c.svc.storage.SaveDelegation(ctx, delegation); err != nil {
		return model.Identity{}, err
	}

	c.svc.logger.Info("login completed",
		slog.String("session_id", string(c.sid)),
		slog.String("principal", string(principal)),
	)

	return delegation.Identity(), nil
}

// Logout removes the session's delegation
func (c *Client) Logout(ctx context.Context) error {
	return c.svc.storage.DeleteDelegation(ctx, c.sid)
}

// expiry applies the provider's token lifetime to the service clock, capped at MaxTimeToLive
func (c *Client) expiry(now time.Time, token *oauth2.Token) time.Time {
	ttl := c.svc.cfg.MaxTimeToLive
	if lifetime := tokenLifetime(token); lifetime > 0 && lifetime < ttl {
		ttl = lifetime
	}
	return now.Add(ttl)
}

// tokenLifetime reads expires_in as sent by the provider. token.Expiry is
// stamped with the wall clock, so it is not used.
func tokenLifetime(token *oauth2.Token) time.Duration {
	seconds := token.ExpiresIn
	if seconds == 0 {
		if raw, ok := token.Extra("expires_in").(string); ok {
			seconds, _ = strconv.ParseInt(raw, 10, 64)
		}
	}
	return time.Duration(seconds) * time.Second
}

// principalFromIDToken reads the subject of an ID token received directly from the token endpoint
func principalFromIDToken(idToken string) (model.Principal, error) {
	if idToken == "" {
		return "", &LoginError{Code: "invalid_token", Description: "token response carried no id_token"}
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return "", &LoginError{Code: "invalid_token", Description: err.Error()}
	}
	if claims.Subject == "" {
		return "", &LoginError{Code: "invalid_token", Description: "id_token has no subject"}
	}
	return model.Principal(claims.Subject), nil
}
