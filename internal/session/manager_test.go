package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestManager(t *testing.T) (*Manager, Store) {
	t.Helper()
	store, err := NewStore(StoreTypeMemory)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return NewManager(store, nil), store
}

func TestStartAndGet(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	s, err := m.Start(ctx, "user-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.ID == "" || s.UserID != "user-1" || s.Ended() {
		t.Errorf("unexpected session: %+v", s)
	}

	got, err := m.Get(ctx, "user-1", s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != s.ID {
		t.Errorf("Get returned %q, want %q", got.ID, s.ID)
	}
}

func TestOwnershipMismatchIsNotFound(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	s, _ := m.Start(ctx, "owner")

	if _, err := m.Get(ctx, "intruder", s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get by other user = %v, want ErrNotFound", err)
	}
	if err := m.ApplyTurn(ctx, "intruder", s.ID, TurnUpdate{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("ApplyTurn by other user = %v, want ErrNotFound", err)
	}
	if _, err := m.End(ctx, "intruder", s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("End by other user = %v, want ErrNotFound", err)
	}

	// Nothing mutated: the owner still sees a live session.
	got, err := m.Get(ctx, "owner", s.ID)
	if err != nil || got.Ended() {
		t.Errorf("owner session after intrusion: %+v, err=%v", got, err)
	}
}

func TestApplyTurnWritesLatestFields(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	s, _ := m.Start(ctx, "u")
	update := TurnUpdate{Transcript: "I went... park", Predictions: []string{"walk"}, Confidence: 0.85}
	if err := m.ApplyTurn(ctx, "u", s.ID, update); err != nil {
		t.Fatalf("ApplyTurn: %v", err)
	}

	got, _ := m.Get(ctx, "u", s.ID)
	if got.Transcript != "I went... park" || got.Confidence != 0.85 || len(got.Predictions) != 1 {
		t.Errorf("session after turn: %+v", got)
	}
}

func TestEndedSessionRejectsMutation(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	s, _ := m.Start(ctx, "u")
	if _, err := m.End(ctx, "u", s.ID); err != nil {
		t.Fatalf("End: %v", err)
	}

	if err := m.ApplyTurn(ctx, "u", s.ID, TurnUpdate{Transcript: "late"}); !errors.Is(err, ErrEnded) {
		t.Errorf("ApplyTurn after end = %v, want ErrEnded", err)
	}
	if err := m.RecordFeedback(ctx, "u", s.ID, true, "late"); !errors.Is(err, ErrEnded) {
		t.Errorf("RecordFeedback after end = %v, want ErrEnded", err)
	}
	if _, err := m.End(ctx, "u", s.ID); !errors.Is(err, ErrEnded) {
		t.Errorf("double End = %v, want ErrEnded", err)
	}
}

func TestEndComputesWholeSecondDuration(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	s := &Session{ID: "s1", UserID: "u", StartedAt: time.Now().UTC().Add(-95 * time.Second)}
	if err := store.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ended, err := m.End(ctx, "u", "s1")
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if ended.DurationSeconds != 95 {
		t.Errorf("DurationSeconds = %d, want 95", ended.DurationSeconds)
	}
}

func TestEndClampsNegativeDuration(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	// Clock skew can put StartedAt in the future; duration must not go negative.
	s := &Session{ID: "s1", UserID: "u", StartedAt: time.Now().UTC().Add(time.Hour)}
	store.Create(ctx, s)

	ended, err := m.End(ctx, "u", "s1")
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if ended.DurationSeconds != 0 {
		t.Errorf("DurationSeconds = %d, want 0", ended.DurationSeconds)
	}
}

func TestFeedbackCounts(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	s, _ := m.Start(ctx, "u")

	outcomes := []bool{true, false, true, true, false}
	for _, accepted := range outcomes {
		if err := m.RecordFeedback(ctx, "u", s.ID, accepted, "the sentence"); err != nil {
			t.Fatalf("RecordFeedback: %v", err)
		}
	}

	got, _ := m.Get(ctx, "u", s.ID)
	if got.TotalPredictionCount != 5 {
		t.Errorf("TotalPredictionCount = %d, want 5", got.TotalPredictionCount)
	}
	if got.SuccessfulPredictionCount != 3 {
		t.Errorf("SuccessfulPredictionCount = %d, want 3", got.SuccessfulPredictionCount)
	}
	if got.SuccessfulPredictionCount > got.TotalPredictionCount {
		t.Error("successful count exceeds total")
	}
	if len(got.CompletedSentences) != 3 {
		t.Errorf("CompletedSentences = %d, want 3 (accepted only)", len(got.CompletedSentences))
	}
}

func TestMemoryStoreClonesSessions(t *testing.T) {
	store, _ := NewStore(StoreTypeMemory)
	ctx := context.Background()

	s := &Session{ID: "s1", UserID: "u", Predictions: []string{"a"}}
	store.Create(ctx, s)

	s.Predictions[0] = "mutated"
	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Predictions[0] != "a" {
		t.Error("store returned aliased session state")
	}
}

func TestStoreFactoryRejectsBadConfig(t *testing.T) {
	if _, err := NewStore(StoreTypeRedis); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("redis store without client = %v, want ErrInvalidConfig", err)
	}
	if _, err := NewStore(StoreType("bogus")); !errors.Is(err, ErrInvalidStoreType) {
		t.Errorf("bogus store type = %v, want ErrInvalidStoreType", err)
	}
}
