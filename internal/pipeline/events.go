package pipeline

import "github.com/voicebridge/gateway/internal/ai"

// Event types pushed to the client, in the order a turn can produce them.
const (
	EventProcessingStarted  = "processing_started"
	EventTranscriptionReady = "transcription_ready"
	EventPredictionsReady   = "predictions_ready"
	EventVisualAidReady     = "visual_aid_ready"
	EventAudioHintReady     = "audio_hint_ready"
	EventProcessingError    = "processing_error"
	EventProcessingComplete = "processing_complete"
)

// Audio hint priorities.
const (
	PriorityImmediate = "immediate"
	PriorityGentle    = "gentle"
)

// Event is one pipeline result sent back to the client as soon as it is
// produced. Fields are populated per event type; the rest stay omitted.
type Event struct {
	Type             string    `json:"type"`
	Timestamp        int64     `json:"timestamp,omitempty"`
	Error            string    `json:"error,omitempty"`
	Text             string    `json:"text,omitempty"`
	Confidence       float64   `json:"confidence,omitempty"`
	Words            []ai.Word `json:"words,omitempty"`
	Predictions      []string  `json:"predictions,omitempty"`
	IntendedMeaning  string    `json:"intended_meaning,omitempty"`
	AssistanceLevel  string    `json:"assistance_level,omitempty"`
	EmotionalContext string    `json:"emotional_context,omitempty"`
	Recommendations  []string  `json:"recommendations,omitempty"`
	ImageURL         string    `json:"image_url,omitempty"`
	Concept          string    `json:"concept,omitempty"`
	Prompt           string    `json:"prompt,omitempty"`
	Priority         string    `json:"priority,omitempty"`
}

// EventSink receives pipeline events for delivery to the client.
type EventSink func(Event)
