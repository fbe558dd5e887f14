// Package auth verifies client tokens against the external auth service.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/voicebridge/gateway/internal/ai"
)

// ErrInvalidToken is returned for tokens the auth service rejects, expired
// ones included. The connection stays unauthenticated; there is no retry.
var ErrInvalidToken = errors.New("invalid or expired token")

// Verifier resolves a token to a user ID.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

// Client is the HTTP auth collaborator.
type Client struct {
	url    string
	client *http.Client
}

// NewClient creates an auth client for the given base URL.
func NewClient(url string, poolSize int) *Client {
	return &Client{
		url:    url,
		client: ai.NewLookupHTTPClient(poolSize),
	}
}

// VerifyToken posts the token and returns the user ID it belongs to.
func (c *Client) VerifyToken(ctx context.Context, token string) (string, error) {
	body, err := json.Marshal(struct {
		Token string `json:"token"`
	}{Token: token})
	if err != nil {
		return "", fmt.Errorf("marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/v1/tokens/verify", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("verify request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", ErrInvalidToken
	default:
		return "", fmt.Errorf("verify status %d", resp.StatusCode)
	}

	var result struct {
		UserID string `json:"user_id"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode verify response: %w", err)
	}
	if result.UserID == "" {
		return "", ErrInvalidToken
	}
	return result.UserID, nil
}
