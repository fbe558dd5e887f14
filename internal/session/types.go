package session

import (
	"errors"
	"time"
)

var (
	// ErrNotFound covers both a missing session and an ownership mismatch;
	// callers cannot distinguish another user's session from none at all.
	ErrNotFound = errors.New("session not found")

	// ErrEnded rejects turn-driven mutation of a closed session.
	ErrEnded = errors.New("session already ended")

	ErrInvalidStoreType = errors.New("invalid session store type")
	ErrInvalidConfig    = errors.New("invalid session store config")
)

// Session is one bounded therapy interaction spanning multiple turns.
type Session struct {
	ID                        string     `json:"id"`
	UserID                    string     `json:"user_id"`
	StartedAt                 time.Time  `json:"started_at"`
	EndedAt                   *time.Time `json:"ended_at,omitempty"`
	DurationSeconds           int64      `json:"duration_seconds,omitempty"`
	Transcript                string     `json:"transcript,omitempty"`
	Predictions               []string   `json:"predictions,omitempty"`
	Confidence                float64    `json:"confidence,omitempty"`
	CompletedSentences        []string   `json:"completed_sentences,omitempty"`
	SuccessfulPredictionCount int        `json:"successful_prediction_count"`
	TotalPredictionCount      int        `json:"total_prediction_count"`
}

// Ended reports whether the session has been closed.
func (s *Session) Ended() bool {
	return s.EndedAt != nil
}

// TurnUpdate carries the fields a processed turn writes back to its session.
type TurnUpdate struct {
	Transcript  string
	Predictions []string
	Confidence  float64
}

// Stats is the summary returned when a session ends.
type Stats struct {
	DurationSeconds           int64 `json:"duration_seconds"`
	CompletedSentences        int   `json:"completed_sentences"`
	SuccessfulPredictionCount int   `json:"successful_prediction_count"`
	TotalPredictionCount      int   `json:"total_prediction_count"`
}
