package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/voicebridge/gateway/internal/prompts"
)

// ArtworkClient turns a session's completed sentences into a thematic artwork
// summary: one chat call distills theme/emotions/colors, one image call renders it.
type ArtworkClient struct {
	url    string
	apiKey string
	model  string
	images *ImageClient
	client *http.Client
}

// NewArtworkClient creates an artwork generator backed by a chat-completions
// endpoint for theme extraction and an ImageClient for rendering.
func NewArtworkClient(url, apiKey, model string, images *ImageClient, poolSize int) *ArtworkClient {
	return &ArtworkClient{
		url:    url,
		apiKey: apiKey,
		model:  model,
		images: images,
		client: NewModelHTTPClient(poolSize),
	}
}

const themeSystem = `You summarize speech therapy sessions as art direction.
Given the sentences a user completed, respond with a single JSON object:
{"theme": "one short phrase", "emotions": ["..."], "colors": ["..."]}`

// GenerateThemeArt distills the sentences into a theme and renders it.
func (c *ArtworkClient) GenerateThemeArt(ctx context.Context, sentences []string) (*ThemeArt, error) {
	theme, err := c.extractTheme(ctx, sentences)
	if err != nil {
		return nil, fmt.Errorf("extract theme: %w", err)
	}

	prompt := prompts.ThemeArt(theme.Theme)
	url, err := c.images.generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("render theme art: %w", err)
	}

	return &ThemeArt{
		ImageURL: url,
		Theme:    theme.Theme,
		Emotions: theme.Emotions,
		Colors:   theme.Colors,
		Prompt:   prompt,
	}, nil
}

type themeResult struct {
	Theme    string   `json:"theme"`
	Emotions []string `json:"emotions"`
	Colors   []string `json:"colors"`
}

func (c *ArtworkClient) extractTheme(ctx context.Context, sentences []string) (*themeResult, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: themeSystem},
			{Role: "user", Content: strings.Join(sentences, "\n")},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal theme request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create theme request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("theme request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("theme status %d: %s", resp.StatusCode, respBody)
	}

	var chat chatResponse
	if err = json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("decode theme response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("theme response had no choices")
	}

	result := &themeResult{Theme: "a completed conversation"}
	if err := json.Unmarshal([]byte(stripFences(chat.Choices[0].Message.Content)), result); err != nil || result.Theme == "" {
		result.Theme = "a completed conversation"
	}
	return result, nil
}
