package agent

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcoot/guessgame/internal/model"
)

const tracerName = "github.com/mcoot/guessgame/internal/agent"

// StatusResponse is returned by the replica status endpoint
type StatusResponse struct {
	Network string `json:"network"`
	RootKey string `json:"root_key"`
}

// CallRequest is the body of a canister call
type CallRequest struct {
	Method string   `json:"method"`
	Arg    *float64 `json:"arg,omitempty"`
}

// CallResponse is a certified reply to a canister call
type CallResponse struct {
	Reply       string `json:"reply"`
	Certificate string `json:"certificate"`
}

// CertificateClaims are signed by the root key over each reply
type CertificateClaims struct {
	Canister    string `json:"canister"`
	Method      string `json:"method"`
	ReplySHA256 string `json:"reply_sha256"`
	jwt.RegisteredClaims
}

// HTTPAgent makes authenticated calls to a replica on behalf of one identity
type HTTPAgent struct {
	host       string
	identity   model.Identity
	httpClient *http.Client
	rootKey    ed25519.PublicKey
	tracer     trace.Tracer
}

// NewHTTPAgent creates an agent bound to identity
func NewHTTPAgent(identity model.Identity, host string, httpClient *http.Client) (*HTTPAgent, error) {
	if identity.Principal == "" || identity.AccessToken == "" {
		return nil, model.ErrNotAuthenticated
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPAgent{
		host:       strings.TrimSuffix(host, "/"),
		identity:   identity,
		httpClient: httpClient,
		tracer:     otel.Tracer(tracerName),
	}, nil
}

// Principal returns the identity the agent calls as
func (a *HTTPAgent) Principal() model.Principal {
	return a.identity.Principal
}

// SetRootKey pins the root key used to verify reply certificates
func (a *HTTPAgent) SetRootKey(key ed25519.PublicKey) {
	a.rootKey = key
}

// HasRootKey reports whether replies can be verified
func (a *HTTPAgent) HasRootKey() bool {
	return len(a.rootKey) == ed25519.PublicKeySize
}

// FetchRootKey asks the replica for its root key
// Only safe against development replicas; production keys must be pinned
func (a *HTTPAgent) FetchRootKey(ctx context.Context) error {
	ctx, span := a.tracer.Start(ctx, "agent.fetch_root_key")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.host+"/api/v2/status", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var status StatusResponse
	if err := a.do(req, &status); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %w", model.ErrRootKeyUnavailable, err)
	}

	key, err := ParseRootKey(status.RootKey)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %w", model.ErrRootKeyUnavailable, err)
	}

	a.rootKey = key
	return nil
}

// Call invokes method on canisterID and returns the verified reply text
func (a *HTTPAgent) Call(ctx context.Context, canisterID string, call CallRequest) (string, error) {
	ctx, span := a.tracer.Start(ctx, "agent.call", trace.WithAttributes(
		attribute.String("canister_id", canisterID),
		attribute.String("method", call.Method),
	))
	defer span.End()

	reply, err := a.call(ctx, canisterID, call)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return reply, nil
}

func (a *HTTPAgent) call(ctx context.Context, canisterID string, call CallRequest) (string, error) {
	if !a.HasRootKey() {
		return "", model.ErrRootKeyUnavailable
	}

	body, err := json.Marshal(call)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v2/canister/%s/call", a.host, canisterID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.identity.AccessToken)

	var resp CallResponse
	if err := a.do(req, &resp); err != nil {
		return "", err
	}

	if err := a.verify(canisterID, call.Method, resp); err != nil {
		return "", err
	}
	return resp.Reply, nil
}

// verify checks the reply certificate against the root key
func (a *HTTPAgent) verify(canisterID, method string, resp CallResponse) error {
	claims := &CertificateClaims{}
	_, err := jwt.ParseWithClaims(resp.Certificate, claims, func(*jwt.Token) (any, error) {
		return a.rootKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrInvalidCertificate, err)
	}

	if claims.Canister != canisterID || claims.Method != method {
		return fmt.Errorf("%w: certificate is for %s.%s", model.ErrInvalidCertificate, claims.Canister, claims.Method)
	}
	if claims.ReplySHA256 != ReplyDigest(resp.Reply) {
		return fmt.Errorf("%w: reply digest mismatch", model.ErrInvalidCertificate)
	}
	return nil
}

// do performs req and decodes a JSON result or a RejectError
func (a *HTTPAgent) do(req *http.Request, result any) error {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// Check for error responses
	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			return &errResp.Error
		}
		return &RejectError{
			Code:    http.StatusText(resp.StatusCode),
			Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, errorText(respBody)),
		}
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

const (
	maxResponseBytes = 1 << 20
	maxErrorText     = 200
)

// errorText shortens an unstructured error body for display
func errorText(body []byte) string {
	text := strings.Join(strings.Fields(strings.ToValidUTF8(string(body), "")), " ")
	if runes := []rune(text); len(runes) > maxErrorText {
		return string(runes[:maxErrorText]) + "..."
	}
	return text
}

// ReplyDigest is the hex SHA-256 of a reply, as carried in certificates
func ReplyDigest(reply string) string {
	sum := sha256.Sum256([]byte(reply))
	return hex.EncodeToString(sum[:])
}
