package ws

import "github.com/voicebridge/gateway/internal/session"

// Inbound message types.
const (
	msgAuthenticate  = "authenticate"
	msgProcessSpeech = "process_speech"
	msgStartSession  = "start_session"
	msgEndSession    = "end_session"
	msgFeedback      = "feedback"
)

// clientMessage is the JSON envelope for every inbound frame. Fields are
// populated per message type.
type clientMessage struct {
	Type               string `json:"type"`
	Token              string `json:"token,omitempty"`
	AudioData          string `json:"audio_data,omitempty"`  // base64
	VideoFrame         string `json:"video_frame,omitempty"` // base64 JPEG
	MimeSubtype        string `json:"mime_subtype,omitempty"`
	Timestamp          int64  `json:"timestamp,omitempty"`
	SessionID          string `json:"session_id,omitempty"`
	PredictionAccepted *bool  `json:"prediction_accepted,omitempty"`
	Suggestion         string `json:"suggestion,omitempty"`
	ActualIntent       string `json:"actual_intent,omitempty"`
}

// Connection-level outbound message types. Pipeline stage events carry their
// own types (see the pipeline package).
const (
	msgAuthenticated       = "authenticated"
	msgAuthenticationError = "authentication_error"
	msgProcessingStarted   = "processing_started"
	msgProcessingBusy      = "processing_busy"
	msgSessionStarted      = "session_started"
	msgSessionEnded        = "session_ended"
	msgError               = "error"
)

// serverMessage is the envelope for connection-level outbound events.
type serverMessage struct {
	Type            string         `json:"type"`
	UserID          string         `json:"user_id,omitempty"`
	SessionID       string         `json:"session_id,omitempty"`
	Message         string         `json:"message,omitempty"`
	Error           string         `json:"error,omitempty"`
	Timestamp       int64          `json:"timestamp,omitempty"`
	DurationSeconds int64          `json:"duration_seconds,omitempty"`
	Stats           *session.Stats `json:"stats,omitempty"`
}
