package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/voicebridge/gateway/internal/metrics"
	"github.com/voicebridge/gateway/internal/prompts"
)

// ImageClient generates visual-aid images through the OpenAI images API.
type ImageClient struct {
	client openai.Client
	model  string
}

// NewImageClient creates an image generation client. baseURL may point at any
// OpenAI-compatible image server; empty means the default API.
func NewImageClient(apiKey, baseURL, model string, poolSize int) *ImageClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(NewModelHTTPClient(poolSize)),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &ImageClient{client: openai.NewClient(opts...), model: model}
}

// GenerateVisualAid renders a single-concept communication aid image, with
// the palette matched to the user's mood when one is known.
// A single opaque remote call; failures are the pipeline's concern.
func (c *ImageClient) GenerateVisualAid(ctx context.Context, concept, mood string) (*Image, error) {
	start := time.Now()
	prompt := prompts.VisualAid(concept, mood)

	url, err := c.generate(ctx, prompt)
	if err != nil {
		metrics.Errors.WithLabelValues("visual_aid", "generate").Inc()
		return nil, fmt.Errorf("visual aid %q: %w", concept, err)
	}

	metrics.StageDuration.WithLabelValues("visual_aid").Observe(time.Since(start).Seconds())
	metrics.VisualAidsGenerated.Inc()

	return &Image{URL: url, Concept: concept, Prompt: prompt}, nil
}

func (c *ImageClient) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(c.model),
		N:      openai.Int(1),
		Size:   openai.ImageGenerateParamsSize1024x1024,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", fmt.Errorf("image response had no url")
	}
	return resp.Data[0].URL, nil
}
