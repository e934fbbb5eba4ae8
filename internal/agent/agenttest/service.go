// Package agenttest runs a fake game canister replica for tests.
package agenttest

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mcoot/guessgame/internal/agent"
)

// CanisterID is the canister the fake serves
const CanisterID = "rrkah-fqaaa-aaaaa-aaaaq-cai"

// Default replies when nothing is queued
const (
	DefaultStartReply = "Game started! Guess a number between 1 and 100."
	DefaultGuessReply = "Too low! Try again."
)

// Call records one canister call received by the fake
type Call struct {
	Method        string
	Arg           *float64
	Authorization string
}

type reply struct {
	text   string
	reject *agent.RejectError
}

// Service is a fake replica hosting the game canister
type Service struct {
	server *httptest.Server
	priv   ed25519.PrivateKey
	pub    ed25519.PublicKey

	mu             sync.Mutex
	calls          []Call
	queued         map[string][]reply
	statusRequests int
	failStatus     bool
	tamper         bool
}

// New starts a fake replica that is closed with the test
func New(t *testing.T) *Service {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate root key: %v", err)
	}

	s := &Service{
		priv:   priv,
		pub:    pub,
		queued: make(map[string][]reply),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2/status", s.handleStatus)
	mux.HandleFunc("POST /api/v2/canister/{id}/call", s.handleCall)
	s.server = httptest.NewServer(mux)
	t.Cleanup(s.server.Close)

	return s
}

// URL returns the replica host
func (s *Service) URL() string {
	return s.server.URL
}

// RootKey returns the key certificates are signed with
func (s *Service) RootKey() ed25519.PublicKey {
	return s.pub
}

// RootKeyBase64 returns the root key as served by the status endpoint
func (s *Service) RootKeyBase64() string {
	return base64.StdEncoding.EncodeToString(s.pub)
}

// Config returns an agent config targeting the fake as a local replica
func (s *Service) Config() agent.Config {
	cfg := agent.DefaultConfig()
	cfg.Host = s.URL()
	cfg.CanisterID = CanisterID
	return cfg
}

// QueueReply queues reply text for the next call to method
func (s *Service) QueueReply(method, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued[method] = append(s.queued[method], reply{text: text})
}

// QueueReject queues a rejection for the next call to method
func (s *Service) QueueReject(method, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued[method] = append(s.queued[method], reply{reject: &agent.RejectError{Code: code, Message: message}})
}

// FailStatus makes the status endpoint return an error
func (s *Service) FailStatus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus = true
}

// TamperReplies makes the fake alter replies after signing them
func (s *Service) TamperReplies() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tamper = true
}

// Calls returns the canister calls received so far
func (s *Service) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// StatusRequests returns how many times the root key was fetched
func (s *Service) StatusRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusRequests
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.statusRequests++
	fail := s.failStatus
	s.mu.Unlock()

	if fail {
		writeJSON(w, http.StatusServiceUnavailable, agent.ErrorResponse{
			Error: agent.RejectError{Code: "unavailable", Message: "replica is starting"},
		})
		return
	}

	writeJSON(w, http.StatusOK, agent.StatusResponse{Network: "local", RootKey: s.RootKeyBase64()})
}

func (s *Service) handleCall(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("id") != CanisterID {
		writeJSON(w, http.StatusNotFound, agent.ErrorResponse{
			Error: agent.RejectError{Code: "canister_not_found", Message: "canister not found"},
		})
		return
	}

	var req agent.CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, agent.ErrorResponse{
			Error: agent.RejectError{Code: "invalid_request", Message: "invalid request body"},
		})
		return
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		writeJSON(w, http.StatusUnauthorized, agent.ErrorResponse{
			Error: agent.RejectError{Code: "unauthorized", Message: "missing delegation"},
		})
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: req.Method, Arg: req.Arg, Authorization: auth})
	next, ok := s.nextReply(req.Method)
	tamper := s.tamper
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusBadRequest, agent.ErrorResponse{
			Error: agent.RejectError{Code: "method_not_found", Message: "unknown method " + req.Method},
		})
		return
	}
	if next.reject != nil {
		writeJSON(w, http.StatusBadRequest, agent.ErrorResponse{Error: *next.reject})
		return
	}

	cert, err := s.certify(req.Method, next.text)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	text := next.text
	if tamper {
		text = "Congratulations! " + text
	}
	writeJSON(w, http.StatusOK, agent.CallResponse{Reply: text, Certificate: cert})
}

// nextReply pops the queued reply for method; callers hold mu
func (s *Service) nextReply(method string) (reply, bool) {
	if q := s.queued[method]; len(q) > 0 {
		s.queued[method] = q[1:]
		return q[0], true
	}
	switch method {
	case agent.MethodStartGame:
		return reply{text: DefaultStartReply}, true
	case agent.MethodGuess:
		return reply{text: DefaultGuessReply}, true
	default:
		return reply{}, false
	}
}

func (s *Service) certify(method, text string) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, agent.CertificateClaims{
		Canister:    CanisterID,
		Method:      method,
		ReplySHA256: agent.ReplyDigest(text),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		},
	}).SignedString(s.priv)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
