// Package esign is the HTTP client for the e-signature/OTP service. Verification
// completes before the engine's sign transaction runs.
package esign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type Session struct {
	SessionID   string    `json:"session_id"`
	ExpiresAt   time.Time `json:"expires_at"`
	MaxAttempts int       `json:"max_attempts"`
}

// InitSession opens an OTP signing session for a contract.
func (c *Client) InitSession(ctx context.Context, contractID, signatureImage string) (*Session, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("esign client not configured")
	}

	body, err := json.Marshal(map[string]string{
		"contract_id":     contractID,
		"signature_image": signatureImage,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &session, nil
}

// Verify checks an OTP code against a session. A false result with nil error means the
// code was wrong; errors are transient and safe to retry.
func (c *Client) Verify(ctx context.Context, sessionID, code string) (bool, error) {
	if c == nil || c.baseURL == "" {
		return false, fmt.Errorf("esign client not configured")
	}

	body, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return false, fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/api/sessions/%s/verify", c.baseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusUnauthorized, http.StatusUnprocessableEntity:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
}
