package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/voicebridge/gateway/internal/metrics"
)

// expectedSecondsPerChar is the speaking-rate estimate used to score word
// timings. A word whose observed duration is far from len(word)*0.1s drags
// the derived transcript confidence down.
const expectedSecondsPerChar = 0.1

// TranscriptionClient sends audio as multipart form data to any
// whisper-compatible HTTP endpoint and returns the transcript with
// word-level timings.
type TranscriptionClient struct {
	url    string
	apiKey string
	model  string
	client *http.Client
}

// NewTranscriptionClient creates a transcription client for a
// /v1/audio/transcriptions-style endpoint.
func NewTranscriptionClient(url, apiKey, model string, poolSize int) *TranscriptionClient {
	return &TranscriptionClient{
		url:    url,
		apiKey: apiKey,
		model:  model,
		client: NewModelHTTPClient(poolSize),
	}
}

// Transcribe sends one turn's audio and returns the transcript. The mime
// subtype names the container the client recorded ("webm", "wav", "ogg").
// A single opaque remote call; no retries.
func (c *TranscriptionClient) Transcribe(ctx context.Context, audio []byte, mimeSubtype string) (*Transcript, error) {
	start := time.Now()

	body, contentType, err := buildMultipartAudio(audio, mimeSubtype, c.model)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/v1/audio/transcriptions", body)
	if err != nil {
		return nil, fmt.Errorf("create transcription request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("transcribe", "http").Inc()
		return nil, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		metrics.Errors.WithLabelValues("transcribe", "status").Inc()
		return nil, fmt.Errorf("transcription status %d: %s", resp.StatusCode, respBody)
	}

	var result whisperVerboseResponse
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode transcription response: %w", err)
	}

	metrics.StageDuration.WithLabelValues("transcribe").Observe(time.Since(start).Seconds())

	return &Transcript{
		Text:            result.Text,
		Words:           result.Words,
		Language:        result.Language,
		DurationSeconds: result.Duration,
		Confidence:      DeriveConfidence(result.Words),
	}, nil
}

type whisperVerboseResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Words    []Word  `json:"words"`
}

// DeriveConfidence scores each word by how closely its observed duration
// matches the expected ~0.1s/character, clamps to [0,1], and averages.
// Returns 0 when there are no words.
func DeriveConfidence(words []Word) float64 {
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range words {
		expected := expectedSecondsPerChar * float64(len([]rune(w.Text)))
		if expected <= 0 {
			continue
		}
		observed := w.End - w.Start
		score := 1 - math.Abs(observed-expected)/expected
		if score < 0 {
			score = 0
		} else if score > 1 {
			score = 1
		}
		sum += score
	}
	return sum / float64(len(words))
}

func buildMultipartAudio(audio []byte, mimeSubtype, model string) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio."+mimeSubtype)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err = part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("write audio data: %w", err)
	}

	writer.WriteField("model", model)
	writer.WriteField("response_format", "verbose_json")
	writer.WriteField("timestamp_granularities[]", "word")

	if err = writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close writer: %w", err)
	}
	return &body, writer.FormDataContentType(), nil
}
