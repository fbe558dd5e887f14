package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voicebridge/gateway/internal/metrics"
	"github.com/voicebridge/gateway/internal/prompts"
)

// historyDepth is how many prior context entries are sent as grounding turns.
const historyDepth = 5

// AnalysisClient predicts intended meaning via a chat-completions endpoint.
type AnalysisClient struct {
	url       string
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
}

// NewAnalysisClient creates a client for a /v1/chat/completions-style endpoint.
func NewAnalysisClient(url, apiKey, model string, maxTokens, poolSize int) *AnalysisClient {
	return &AnalysisClient{
		url:       url,
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		client:    NewModelHTTPClient(poolSize),
	}
}

// Analyze sends one turn's transcript with profile, recent history, and the
// optional video frame, and returns the parsed Analysis. The model response
// is decoded permissively: missing or malformed fields are defaulted, never
// fatal. Only transport and HTTP errors fail the call.
func (c *AnalysisClient) Analyze(ctx context.Context, req AnalysisRequest) (*Analysis, error) {
	start := time.Now()

	body, err := json.Marshal(chatRequest{
		Model:          c.model,
		MaxTokens:      c.maxTokens,
		Messages:       buildMessages(req),
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal analysis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.url+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create analysis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		metrics.Errors.WithLabelValues("analyze", "http").Inc()
		return nil, fmt.Errorf("analysis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		metrics.Errors.WithLabelValues("analyze", "status").Inc()
		return nil, fmt.Errorf("analysis status %d: %s", resp.StatusCode, respBody)
	}

	var chat chatResponse
	if err = json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("decode analysis response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("analysis response had no choices")
	}

	metrics.StageDuration.WithLabelValues("analyze").Observe(time.Since(start).Seconds())

	return decodeAnalysis(chat.Choices[0].Message.Content, req.Transcript), nil
}

func buildMessages(req AnalysisRequest) []chatMessage {
	messages := []chatMessage{
		{Role: "system", Content: prompts.AnalysisSystem},
		{Role: "system", Content: prompts.UserProfile(req.Condition, req.Severity, req.Settings)},
	}

	history := req.History
	if len(history) > historyDepth {
		history = history[len(history)-historyDepth:]
	}
	for _, t := range history {
		messages = append(messages,
			chatMessage{Role: "user", Content: t.Transcript},
			chatMessage{Role: "assistant", Content: t.Meaning},
		)
	}

	if len(req.VideoFrame) == 0 {
		return append(messages, chatMessage{Role: "user", Content: req.Transcript})
	}

	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(req.VideoFrame)
	return append(messages, chatMessage{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: req.Transcript},
			{Type: "image_url", ImageURL: &imageURLPart{URL: dataURL}},
		},
	})
}

type chatRequest struct {
	Model          string          `json:"model"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatMessage content is either a plain string or []contentPart for
// multimodal turns.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *imageURLPart `json:"image_url,omitempty"`
}

type imageURLPart struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
