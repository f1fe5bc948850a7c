package prove

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/payfone/prefill-verify/internal/config"
	"github.com/payfone/prefill-verify/internal/domain"
)

// Client talks to the Prove verification API. The base URL (sandbox or
// production) and credentials are injected at construction; every request
// runs under the client's bounded timeout, so no call blocks forever.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	username   string
	password   string

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.ProveTimeout},
		baseURL:    cfg.ProveBaseURL,
		clientID:   cfg.ProveClientID,
		username:   cfg.ProveUsername,
		password:   cfg.ProvePassword,
	}
}

// SendInstantLink asks the provider to mint a one-time link for the phone
// number. The returned fingerprint correlates the link with its click result.
func (c *Client) SendInstantLink(ctx context.Context, phoneNumber, sourceIP, finalTargetURL string) (*InstantLink, error) {
	req := map[string]string{
		"PhoneNumber":    phoneNumber,
		"SourceIp":       sourceIP,
		"FinalTargetUrl": finalTargetURL,
	}
	var out InstantLink
	if err := c.post(ctx, "/fortified/2015/06/01/getAuthUrl", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetInstantLinkResult fetches the click outcome for a fingerprint.
func (c *Client) GetInstantLinkResult(ctx context.Context, fingerprint string) (*InstantLinkResult, error) {
	req := map[string]string{"VerificationFingerprint": fingerprint}
	var out InstantLinkResult
	if err := c.post(ctx, "/fortified/2015/06/01/instantLinkResult", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TrustScore fetches the phone/IP reputation score.
func (c *Client) TrustScore(ctx context.Context, phoneNumber, sourceIP string) (*TrustResult, error) {
	req := map[string]string{
		"PhoneNumber": phoneNumber,
		"SourceIp":    sourceIP,
	}
	var out TrustResult
	if err := c.post(ctx, "/trust/v2", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Identity performs the partial-PII lookup (phone + dob and/or last4).
func (c *Client) Identity(ctx context.Context, phoneNumber, dob, last4 string) (*IdentityResult, error) {
	req := map[string]string{
		"PhoneNumber": phoneNumber,
		"Dob":         dob,
		"Last4":       last4,
	}
	var out IdentityResult
	if err := c.post(ctx, "/identity/v2", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IdentityConfirm performs the full-PII confirmation.
func (c *Client) IdentityConfirm(ctx context.Context, req *ConfirmRequest) (*ConfirmResult, error) {
	var out ConfirmResult
	if err := c.post(ctx, "/identity/verify/v2", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// post sends an authenticated JSON request. Any transport failure, timeout
// or non-2xx response is logged and wrapped as domain.ErrProvider so callers
// never see raw provider internals.
func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	token, err := c.adminToken(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("prove request failed", "path", path, "err", err)
		return fmt.Errorf("prove %s: %w", path, domain.ErrProvider)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("prove returned non-2xx", "path", path, "status", resp.StatusCode)
		return fmt.Errorf("prove %s: status %d: %w", path, resp.StatusCode, domain.ErrProvider)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		slog.Error("prove response decode failed", "path", path, "err", err)
		return fmt.Errorf("prove %s: decode: %w", path, domain.ErrProvider)
	}
	return nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// adminToken returns a cached admin access token, fetching a fresh one when
// the cache is empty or within a minute of expiry.
func (c *Client) adminToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Until(c.tokenExp) > time.Minute {
		return c.token, nil
	}

	form := map[string]string{
		"grant_type": "password",
		"client_id":  c.clientID,
		"username":   c.username,
		"password":   c.password,
	}
	payload, _ := json.Marshal(form)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("prove token request failed", "err", err)
		return "", fmt.Errorf("prove token: %w", domain.ErrProvider)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		slog.Error("prove token returned non-200", "status", resp.StatusCode)
		return "", fmt.Errorf("prove token: status %d: %w", resp.StatusCode, domain.ErrProvider)
	}
	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("prove token: decode: %w", domain.ErrProvider)
	}
	c.token = tr.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	return c.token, nil
}
