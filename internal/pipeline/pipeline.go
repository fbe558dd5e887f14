// Package pipeline drives one user turn through transcribe → analyze →
// optional visual aid → optional audio hint, emitting each stage's result
// as soon as it is produced.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/voicebridge/gateway/internal/ai"
	"github.com/voicebridge/gateway/internal/convo"
	"github.com/voicebridge/gateway/internal/metrics"
	"github.com/voicebridge/gateway/internal/profile"
	"github.com/voicebridge/gateway/internal/session"
)

// RemoteCallTimeout bounds each remote AI call so a stuck backend cannot
// wedge a user out of future turns.
const RemoteCallTimeout = 30 * time.Second

// Transcriber produces a transcript from one turn's audio.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeSubtype string) (*ai.Transcript, error)
}

// Analyzer predicts intended meaning for one turn.
type Analyzer interface {
	Analyze(ctx context.Context, req ai.AnalysisRequest) (*ai.Analysis, error)
}

// VisualAidGenerator renders a concept image for one turn, tinted by the
// turn's emotional context.
type VisualAidGenerator interface {
	GenerateVisualAid(ctx context.Context, concept, mood string) (*ai.Image, error)
}

// SessionUpdater writes a processed turn's outcome into the active session.
type SessionUpdater interface {
	ApplyTurn(ctx context.Context, userID, sessionID string, u session.TurnUpdate) error
}

// Config holds the pipeline's collaborators.
type Config struct {
	Transcriber Transcriber
	Analyzer    Analyzer
	VisualAids  VisualAidGenerator
	Profiles    profile.Getter
	Context     *convo.Store
	Sessions    SessionUpdater
}

// Pipeline executes turns. Safe for concurrent use across users; per-user
// serialization is the dispatch layer's job.
type Pipeline struct {
	cfg Config
}

// New creates a turn pipeline.
func New(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Turn is one unit of audio (+ optional video frame) to process. Transient:
// nothing here is retained once results are emitted.
type Turn struct {
	Audio           []byte
	VideoFrame      []byte
	MimeSubtype     string
	ClientTimestamp int64
}

// Process runs the turn through all stages, emitting progressive results.
// Transcription and analysis failures are fatal to the turn; visual aid
// failures degrade silently; the audio hint is local and cannot fail.
// processing_complete is always emitted, even after a fatal stage.
func (p *Pipeline) Process(ctx context.Context, userID, activeSessionID string, turn Turn, emit EventSink) {
	start := time.Now()
	metrics.TurnsTotal.Inc()

	defer func() {
		emit(Event{Type: EventProcessingComplete, Timestamp: time.Now().UnixMilli()})
		metrics.TurnDuration.Observe(time.Since(start).Seconds())
	}()

	transcript, err := p.transcribe(ctx, turn)
	if err != nil {
		slog.Error("transcription failed", "user_id", userID, "error", err)
		emit(Event{Type: EventProcessingError, Error: "transcription failed"})
		return
	}
	emit(Event{
		Type:       EventTranscriptionReady,
		Text:       transcript.Text,
		Confidence: transcript.Confidence,
		Words:      transcript.Words,
	})

	analysis, err := p.analyze(ctx, userID, transcript, turn.VideoFrame)
	if err != nil {
		slog.Error("analysis failed", "user_id", userID, "error", err)
		emit(Event{Type: EventProcessingError, Error: "analysis failed"})
		return
	}
	emit(Event{
		Type:             EventPredictionsReady,
		Predictions:      analysis.WordPredictions,
		Confidence:       analysis.Confidence,
		IntendedMeaning:  analysis.IntendedMeaning,
		AssistanceLevel:  analysis.AssistanceLevel,
		EmotionalContext: analysis.EmotionalContext,
		Recommendations:  analysis.Recommendations,
	})

	p.cfg.Context.Append(userID, convo.Entry{
		Transcript: transcript.Text,
		Meaning:    analysis.IntendedMeaning,
		Timestamp:  time.Now(),
	})

	p.visualAid(ctx, userID, analysis, emit)
	audioHint(analysis, emit)
	p.updateSession(ctx, userID, activeSessionID, transcript, analysis)

	slog.Info("turn processed",
		"user_id", userID,
		"transcript_len", len(transcript.Text),
		"assistance_level", analysis.AssistanceLevel,
		"total_ms", time.Since(start).Milliseconds(),
	)
}

func (p *Pipeline) transcribe(ctx context.Context, turn Turn) (*ai.Transcript, error) {
	callCtx, cancel := context.WithTimeout(ctx, RemoteCallTimeout)
	defer cancel()
	return p.cfg.Transcriber.Transcribe(callCtx, turn.Audio, turn.MimeSubtype)
}

func (p *Pipeline) analyze(ctx context.Context, userID string, transcript *ai.Transcript, frame []byte) (*ai.Analysis, error) {
	req := ai.AnalysisRequest{
		Transcript: transcript.Text,
		VideoFrame: frame,
	}

	// Profile fetch is best-effort: a missing profile degrades the analysis
	// but must not fail the turn.
	if prof, err := p.fetchProfile(ctx, userID); err != nil {
		slog.Warn("profile fetch failed, analyzing without profile", "user_id", userID, "error", err)
	} else {
		req.Condition = prof.Condition
		req.Severity = prof.Severity
		req.Settings = prof.Settings
	}

	for _, e := range p.cfg.Context.Recent(userID, 5) {
		req.History = append(req.History, ai.PriorTurn{Transcript: e.Transcript, Meaning: e.Meaning})
	}

	callCtx, cancel := context.WithTimeout(ctx, RemoteCallTimeout)
	defer cancel()
	return p.cfg.Analyzer.Analyze(callCtx, req)
}

func (p *Pipeline) fetchProfile(ctx context.Context, userID string) (*profile.Profile, error) {
	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return p.cfg.Profiles.GetProfile(callCtx, userID)
}

// visualAid runs stage 3. Generation failure is non-fatal: logged, no event.
func (p *Pipeline) visualAid(ctx context.Context, userID string, analysis *ai.Analysis, emit EventSink) {
	if p.cfg.VisualAids == nil || !analysis.VisualCue.Suggested || analysis.VisualCue.Concept == "" {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, RemoteCallTimeout)
	defer cancel()

	img, err := p.cfg.VisualAids.GenerateVisualAid(callCtx, analysis.VisualCue.Concept, analysis.EmotionalContext)
	if err != nil {
		slog.Warn("visual aid generation failed", "user_id", userID, "concept", analysis.VisualCue.Concept, "error", err)
		return
	}
	emit(Event{
		Type:     EventVisualAidReady,
		ImageURL: img.URL,
		Concept:  img.Concept,
		Prompt:   img.Prompt,
	})
}

// audioHint runs stage 4. Purely local; cannot fail.
func audioHint(analysis *ai.Analysis, emit EventSink) {
	if !analysis.AudioHint.Suggested || analysis.AudioHint.Text == "" {
		return
	}
	priority := PriorityGentle
	if analysis.AssistanceLevel == ai.AssistanceHigh {
		priority = PriorityImmediate
	}
	emit(Event{Type: EventAudioHintReady, Text: analysis.AudioHint.Text, Priority: priority})
}

// updateSession runs stage 5. Persistence failure never rolls back results
// already emitted; the real-time events are the source of truth for the turn.
func (p *Pipeline) updateSession(ctx context.Context, userID, sessionID string, transcript *ai.Transcript, analysis *ai.Analysis) {
	if sessionID == "" || p.cfg.Sessions == nil {
		return
	}
	err := p.cfg.Sessions.ApplyTurn(ctx, userID, sessionID, session.TurnUpdate{
		Transcript:  transcript.Text,
		Predictions: analysis.WordPredictions,
		Confidence:  analysis.Confidence,
	})
	if err != nil {
		slog.Error("session turn update failed", "user_id", userID, "session_id", sessionID, "error", err)
		metrics.Errors.WithLabelValues("session_update", "store").Inc()
	}
}
