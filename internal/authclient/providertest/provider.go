// Package providertest runs a fake OAuth2 identity provider for tests.
package providertest

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type grant struct {
	clientID  string
	challenge string
	principal string
}

// Provider is a fake identity provider serving /authorize and /token
type Provider struct {
	server *httptest.Server

	mu        sync.Mutex
	principal string
	grants    map[string]grant
	next      int
	failToken bool
	noIDToken bool
	expiresIn int
}

// New starts a fake provider that is closed with the test
func New(t *testing.T) *Provider {
	t.Helper()

	p := &Provider{
		principal: "principal-alice",
		grants:    make(map[string]grant),
		expiresIn: 3600,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", p.handleToken)
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)

	return p
}

// URL returns the provider base URL
func (p *Provider) URL() string {
	return p.server.URL
}

// Client returns an HTTP client that talks to the provider
func (p *Provider) Client() *http.Client {
	return p.server.Client()
}

// SetPrincipal sets the subject issued in subsequent ID tokens
func (p *Provider) SetPrincipal(principal string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.principal = principal
}

// FailTokenRequests makes the token endpoint reject every exchange
func (p *Provider) FailTokenRequests() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failToken = true
}

// OmitIDToken makes token responses leave out the id_token
func (p *Provider) OmitIDToken() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.noIDToken = true
}

// SetExpiresIn sets the expires_in returned with access tokens
func (p *Provider) SetExpiresIn(seconds int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expiresIn = seconds
}

// Approve plays the user approving the login at authURL
// It returns the callback query the provider would redirect back with
func (p *Provider) Approve(authURL string) (url.Values, error) {
	u, err := url.Parse(authURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	if q.Get("code_challenge_method") != "S256" {
		return nil, fmt.Errorf("unexpected code_challenge_method %q", q.Get("code_challenge_method"))
	}

	p.mu.Lock()
	p.next++
	code := fmt.Sprintf("code-%d", p.next)
	p.grants[code] = grant{
		clientID:  q.Get("client_id"),
		challenge: q.Get("code_challenge"),
		principal: p.principal,
	}
	p.mu.Unlock()

	return url.Values{"code": {code}, "state": {q.Get("state")}}, nil
}

// Deny plays the user cancelling the login at authURL
func (p *Provider) Deny(authURL string) (url.Values, error) {
	u, err := url.Parse(authURL)
	if err != nil {
		return nil, err
	}
	return url.Values{
		"error":             {"access_denied"},
		"error_description": {"user cancelled login"},
		"state":             {u.Query().Get("state")},
	}, nil
}

func (p *Provider) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, "invalid_request")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failToken {
		writeError(w, "server_error")
		return
	}
	if r.PostForm.Get("grant_type") != "authorization_code" {
		writeError(w, "unsupported_grant_type")
		return
	}

	code := r.PostForm.Get("code")
	g, ok := p.grants[code]
	if !ok {
		writeError(w, "invalid_grant")
		return
	}
	delete(p.grants, code)

	sum := sha256.Sum256([]byte(r.PostForm.Get("code_verifier")))
	if base64.RawURLEncoding.EncodeToString(sum[:]) != g.challenge {
		writeError(w, "invalid_grant")
		return
	}

	resp := map[string]any{
		"access_token": "access-" + code,
		"token_type":   "Bearer",
		"expires_in":   p.expiresIn,
	}
	if !p.noIDToken {
		idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   g.principal,
			Audience:  jwt.ClaimStrings{g.clientID},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).SignedString([]byte("providertest"))
		if err != nil {
			writeError(w, "server_error")
			return
		}
		resp["id_token"] = idToken
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
