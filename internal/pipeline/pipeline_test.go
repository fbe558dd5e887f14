package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/voicebridge/gateway/internal/ai"
	"github.com/voicebridge/gateway/internal/convo"
	"github.com/voicebridge/gateway/internal/profile"
	"github.com/voicebridge/gateway/internal/session"
)

type fakeTranscriber struct {
	result *ai.Transcript
	err    error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, mimeSubtype string) (*ai.Transcript, error) {
	return f.result, f.err
}

type fakeAnalyzer struct {
	result *ai.Analysis
	err    error
	gotReq ai.AnalysisRequest
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req ai.AnalysisRequest) (*ai.Analysis, error) {
	f.gotReq = req
	return f.result, f.err
}

type fakeVisuals struct {
	err     error
	calls   int
	gotMood string
}

func (f *fakeVisuals) GenerateVisualAid(ctx context.Context, concept, mood string) (*ai.Image, error) {
	f.calls++
	f.gotMood = mood
	if f.err != nil {
		return nil, f.err
	}
	return &ai.Image{URL: "https://img/park", Concept: concept, Prompt: "an illustration of " + concept}, nil
}

type fakeProfiles struct{ err error }

func (f *fakeProfiles) GetProfile(ctx context.Context, userID string) (*profile.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &profile.Profile{Condition: "aphasia", Severity: "moderate"}, nil
}

type fakeSessions struct {
	mu      sync.Mutex
	updates []session.TurnUpdate
	err     error
}

func (f *fakeSessions) ApplyTurn(ctx context.Context, userID, sessionID string, u session.TurnUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, u)
	return f.err
}

type eventCollector struct {
	mu     sync.Mutex
	events []Event
}

func (e *eventCollector) sink() EventSink {
	return func(ev Event) {
		e.mu.Lock()
		e.events = append(e.events, ev)
		e.mu.Unlock()
	}
}

func (e *eventCollector) types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.Type
	}
	return out
}

func (e *eventCollector) find(typ string) *Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.events {
		if e.events[i].Type == typ {
			return &e.events[i]
		}
	}
	return nil
}

func goodTranscript() *ai.Transcript {
	return &ai.Transcript{
		Text:       "I went... park",
		Confidence: 0.85,
		Words:      []ai.Word{{Text: "I", Start: 0, End: 0.1}},
	}
}

func goodAnalysis() *ai.Analysis {
	return &ai.Analysis{
		IntendedMeaning:  "I went for a walk in the park",
		Confidence:       0.85,
		WordPredictions:  []string{"walk", "stroll"},
		AssistanceLevel:  ai.AssistanceMedium,
		VisualCue:        ai.VisualCue{Suggested: true, Concept: "park"},
		EmotionalContext: "calm",
	}
}

func newTestPipeline(tr Transcriber, an Analyzer, vis VisualAidGenerator, sess SessionUpdater) (*Pipeline, *convo.Store) {
	store := convo.NewStore()
	p := New(Config{
		Transcriber: tr,
		Analyzer:    an,
		VisualAids:  vis,
		Profiles:    &fakeProfiles{},
		Context:     store,
		Sessions:    sess,
	})
	return p, store
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestProcessEmitsStagesInOrder(t *testing.T) {
	p, _ := newTestPipeline(
		&fakeTranscriber{result: goodTranscript()},
		&fakeAnalyzer{result: goodAnalysis()},
		&fakeVisuals{},
		&fakeSessions{},
	)
	var ec eventCollector

	p.Process(context.Background(), "u", "", Turn{Audio: []byte("x")}, ec.sink())

	want := []string{
		EventTranscriptionReady,
		EventPredictionsReady,
		EventVisualAidReady,
		EventProcessingComplete,
	}
	if got := ec.types(); !equalStrings(got, want) {
		t.Errorf("event order = %v, want %v", got, want)
	}

	tr := ec.find(EventTranscriptionReady)
	if tr.Text != "I went... park" || tr.Confidence != 0.85 {
		t.Errorf("transcription event = %+v", tr)
	}
	pr := ec.find(EventPredictionsReady)
	if pr.IntendedMeaning != "I went for a walk in the park" || pr.AssistanceLevel != ai.AssistanceMedium {
		t.Errorf("predictions event = %+v", pr)
	}
	va := ec.find(EventVisualAidReady)
	if va.ImageURL != "https://img/park" || va.Concept != "park" {
		t.Errorf("visual aid event = %+v", va)
	}
}

func TestProcessTranscriptionFailureIsFatal(t *testing.T) {
	analyzer := &fakeAnalyzer{result: goodAnalysis()}
	p, _ := newTestPipeline(
		&fakeTranscriber{err: errors.New("speech service down")},
		analyzer,
		&fakeVisuals{},
		&fakeSessions{},
	)
	var ec eventCollector

	p.Process(context.Background(), "u", "", Turn{Audio: []byte("x")}, ec.sink())

	want := []string{EventProcessingError, EventProcessingComplete}
	if got := ec.types(); !equalStrings(got, want) {
		t.Errorf("event order = %v, want %v", got, want)
	}
	if analyzer.gotReq.Transcript != "" {
		t.Error("analyzer was called after a fatal transcription failure")
	}
}

func TestProcessAnalysisFailureIsFatal(t *testing.T) {
	visuals := &fakeVisuals{}
	p, store := newTestPipeline(
		&fakeTranscriber{result: goodTranscript()},
		&fakeAnalyzer{err: errors.New("model overloaded")},
		visuals,
		&fakeSessions{},
	)
	var ec eventCollector

	p.Process(context.Background(), "u", "", Turn{Audio: []byte("x")}, ec.sink())

	want := []string{EventTranscriptionReady, EventProcessingError, EventProcessingComplete}
	if got := ec.types(); !equalStrings(got, want) {
		t.Errorf("event order = %v, want %v", got, want)
	}
	if visuals.calls != 0 {
		t.Error("visual aid ran after a fatal analysis failure")
	}
	if got := store.Recent("u", 10); len(got) != 0 {
		t.Error("context appended despite analysis failure")
	}
}

func TestProcessVisualAidFailureIsNonFatal(t *testing.T) {
	p, _ := newTestPipeline(
		&fakeTranscriber{result: goodTranscript()},
		&fakeAnalyzer{result: goodAnalysis()},
		&fakeVisuals{err: errors.New("image service down")},
		&fakeSessions{},
	)
	var ec eventCollector

	p.Process(context.Background(), "u", "", Turn{Audio: []byte("x")}, ec.sink())

	want := []string{EventTranscriptionReady, EventPredictionsReady, EventProcessingComplete}
	if got := ec.types(); !equalStrings(got, want) {
		t.Errorf("event order = %v, want %v", got, want)
	}
}

func TestProcessTintsVisualAidWithEmotionalContext(t *testing.T) {
	visuals := &fakeVisuals{}
	p, _ := newTestPipeline(
		&fakeTranscriber{result: goodTranscript()},
		&fakeAnalyzer{result: goodAnalysis()},
		visuals,
		&fakeSessions{},
	)
	var ec eventCollector

	p.Process(context.Background(), "u", "", Turn{Audio: []byte("x")}, ec.sink())

	if visuals.gotMood != "calm" {
		t.Errorf("visual aid mood = %q, want the analysis's emotional context", visuals.gotMood)
	}
}

func TestProcessSkipsVisualAidWhenNotSuggested(t *testing.T) {
	analysis := goodAnalysis()
	analysis.VisualCue = ai.VisualCue{}
	visuals := &fakeVisuals{}
	p, _ := newTestPipeline(
		&fakeTranscriber{result: goodTranscript()},
		&fakeAnalyzer{result: analysis},
		visuals,
		&fakeSessions{},
	)
	var ec eventCollector

	p.Process(context.Background(), "u", "", Turn{Audio: []byte("x")}, ec.sink())

	if visuals.calls != 0 {
		t.Errorf("visual aid calls = %d, want 0", visuals.calls)
	}
}

func TestProcessAudioHintPriority(t *testing.T) {
	tests := []struct {
		level    string
		priority string
	}{
		{ai.AssistanceHigh, PriorityImmediate},
		{ai.AssistanceMedium, PriorityGentle},
		{ai.AssistanceLow, PriorityGentle},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			analysis := goodAnalysis()
			analysis.VisualCue = ai.VisualCue{}
			analysis.AssistanceLevel = tt.level
			analysis.AudioHint = ai.AudioHint{Suggested: true, Text: "try: the park"}

			p, _ := newTestPipeline(
				&fakeTranscriber{result: goodTranscript()},
				&fakeAnalyzer{result: analysis},
				&fakeVisuals{},
				&fakeSessions{},
			)
			var ec eventCollector
			p.Process(context.Background(), "u", "", Turn{Audio: []byte("x")}, ec.sink())

			hint := ec.find(EventAudioHintReady)
			if hint == nil {
				t.Fatal("no audio_hint_ready event")
			}
			if hint.Priority != tt.priority || hint.Text != "try: the park" {
				t.Errorf("hint = %+v, want priority %q", hint, tt.priority)
			}
		})
	}
}

func TestProcessAppendsContextAndGroundsNextTurn(t *testing.T) {
	analyzer := &fakeAnalyzer{result: goodAnalysis()}
	p, store := newTestPipeline(
		&fakeTranscriber{result: goodTranscript()},
		analyzer,
		&fakeVisuals{},
		&fakeSessions{},
	)
	var ec eventCollector

	p.Process(context.Background(), "u", "", Turn{Audio: []byte("x")}, ec.sink())
	p.Process(context.Background(), "u", "", Turn{Audio: []byte("y")}, ec.sink())

	if got := store.Recent("u", 10); len(got) != 2 {
		t.Fatalf("context entries = %d, want 2", len(got))
	}
	if len(analyzer.gotReq.History) != 1 {
		t.Fatalf("second turn history = %d entries, want 1", len(analyzer.gotReq.History))
	}
	if analyzer.gotReq.History[0].Meaning != "I went for a walk in the park" {
		t.Errorf("history entry = %+v", analyzer.gotReq.History[0])
	}
	if analyzer.gotReq.Condition != "aphasia" {
		t.Errorf("profile not threaded into analysis: %+v", analyzer.gotReq)
	}
}

func TestProcessUpdatesActiveSession(t *testing.T) {
	sessions := &fakeSessions{}
	p, _ := newTestPipeline(
		&fakeTranscriber{result: goodTranscript()},
		&fakeAnalyzer{result: goodAnalysis()},
		&fakeVisuals{},
		sessions,
	)
	var ec eventCollector

	p.Process(context.Background(), "u", "sess-1", Turn{Audio: []byte("x")}, ec.sink())

	if len(sessions.updates) != 1 {
		t.Fatalf("session updates = %d, want 1", len(sessions.updates))
	}
	if sessions.updates[0].Transcript != "I went... park" || sessions.updates[0].Confidence != 0.85 {
		t.Errorf("session update = %+v", sessions.updates[0])
	}
}

func TestProcessSkipsSessionUpdateWithoutActiveSession(t *testing.T) {
	sessions := &fakeSessions{}
	p, _ := newTestPipeline(
		&fakeTranscriber{result: goodTranscript()},
		&fakeAnalyzer{result: goodAnalysis()},
		&fakeVisuals{},
		sessions,
	)
	var ec eventCollector

	p.Process(context.Background(), "u", "", Turn{Audio: []byte("x")}, ec.sink())

	if len(sessions.updates) != 0 {
		t.Errorf("session updates = %d, want 0", len(sessions.updates))
	}
}

func TestProcessSessionStoreFailureDoesNotAffectEvents(t *testing.T) {
	sessions := &fakeSessions{err: errors.New("store down")}
	p, _ := newTestPipeline(
		&fakeTranscriber{result: goodTranscript()},
		&fakeAnalyzer{result: goodAnalysis()},
		&fakeVisuals{},
		sessions,
	)
	var ec eventCollector

	p.Process(context.Background(), "u", "sess-1", Turn{Audio: []byte("x")}, ec.sink())

	if ec.find(EventProcessingError) != nil {
		t.Error("persistence failure surfaced as processing_error")
	}
	if ec.find(EventProcessingComplete) == nil {
		t.Error("processing_complete missing")
	}
}
