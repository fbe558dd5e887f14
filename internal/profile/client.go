// Package profile reads user condition/severity/settings from the external
// profile service.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/voicebridge/gateway/internal/ai"
)

// Profile describes a user's speech condition and preferences.
type Profile struct {
	Condition string            `json:"condition"`
	Severity  string            `json:"severity"`
	Settings  map[string]string `json:"settings"`
}

// Getter resolves a user ID to their profile.
type Getter interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
}

// Client is the HTTP profile collaborator.
type Client struct {
	url    string
	client *http.Client
}

// NewClient creates a profile client for the given base URL.
func NewClient(url string, poolSize int) *Client {
	return &Client{
		url:    url,
		client: ai.NewLookupHTTPClient(poolSize),
	}
}

// GetProfile fetches the user's profile.
func (c *Client) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.url+"/v1/users/"+userID+"/profile", nil)
	if err != nil {
		return nil, fmt.Errorf("create profile request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile status %d", resp.StatusCode)
	}

	var p Profile
	if err = json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile response: %w", err)
	}
	return &p, nil
}
