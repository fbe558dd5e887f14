package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/voicebridge/gateway/internal/metrics"
)

// Manager owns session lifecycle and metric aggregation. All operations are
// ownership-checked: a session ID belonging to another user is reported as
// ErrNotFound, never as a permission hint.
type Manager struct {
	store    Store
	recorder *Recorder
}

// NewManager creates a session manager. recorder may be nil when no progress
// backend is configured.
func NewManager(store Store, recorder *Recorder) *Manager {
	return &Manager{store: store, recorder: recorder}
}

// Start opens a new session for the user.
func (m *Manager) Start(ctx context.Context, userID string) (*Session, error) {
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		StartedAt: time.Now().UTC(),
	}
	if err := m.store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	metrics.SessionsActive.Inc()
	return s, nil
}

// Get returns the session if it exists and belongs to userID.
func (m *Manager) Get(ctx context.Context, userID, sessionID string) (*Session, error) {
	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, ErrNotFound
	}
	return s, nil
}

// ApplyTurn writes a processed turn's transcript, predictions, and confidence
// into the session. Ended sessions reject turn-driven mutation.
func (m *Manager) ApplyTurn(ctx context.Context, userID, sessionID string, u TurnUpdate) error {
	s, err := m.Get(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if s.Ended() {
		return ErrEnded
	}

	s.Transcript = u.Transcript
	s.Predictions = u.Predictions
	s.Confidence = u.Confidence
	return m.store.Update(ctx, s)
}

// RecordFeedback counts one prediction outcome: total always increments,
// successful only when accepted. An accepted sentence joins the session's
// completed list.
func (m *Manager) RecordFeedback(ctx context.Context, userID, sessionID string, accepted bool, sentence string) error {
	s, err := m.Get(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if s.Ended() {
		return ErrEnded
	}

	s.TotalPredictionCount++
	if accepted {
		s.SuccessfulPredictionCount++
		if sentence != "" {
			s.CompletedSentences = append(s.CompletedSentences, sentence)
		}
	}
	return m.store.Update(ctx, s)
}

// End closes the session, computes its whole-second duration, and hands it to
// the background recorder for progress aggregation and, when the session has
// at least three completed sentences, artwork generation. Recorder failures
// never fail End.
func (m *Manager) End(ctx context.Context, userID, sessionID string) (*Session, error) {
	s, err := m.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Ended() {
		return nil, ErrEnded
	}

	now := time.Now().UTC()
	s.EndedAt = &now
	s.DurationSeconds = int64(now.Sub(s.StartedAt).Seconds())
	if s.DurationSeconds < 0 {
		s.DurationSeconds = 0
	}

	if err = m.store.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	metrics.SessionsActive.Dec()

	m.recorder.SessionEnded(s)
	return s, nil
}

// StatsFor summarizes an ended session.
func StatsFor(s *Session) Stats {
	return Stats{
		DurationSeconds:           s.DurationSeconds,
		CompletedSentences:        len(s.CompletedSentences),
		SuccessfulPredictionCount: s.SuccessfulPredictionCount,
		TotalPredictionCount:      s.TotalPredictionCount,
	}
}
