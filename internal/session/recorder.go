package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/voicebridge/gateway/internal/ai"
	"github.com/voicebridge/gateway/internal/progress"
)

// artworkThreshold is the minimum completed sentences before a session earns
// a theme artwork.
const artworkThreshold = 3

// ProgressSink receives the durable side effects of an ended session.
type ProgressSink interface {
	UpsertDaily(ctx context.Context, userID string, day time.Time, wordsImproved int, confidence float64) error
	SaveArtwork(ctx context.Context, a *progress.Artwork) error
}

// ArtworkGenerator renders a thematic summary of completed sentences.
type ArtworkGenerator interface {
	GenerateThemeArt(ctx context.Context, sentences []string) (*ai.ThemeArt, error)
}

// Recorder applies end-of-session side effects asynchronously via a buffered
// channel, so EndSession never waits on the progress database or the image
// service. Failures are logged, never surfaced. All methods are nil-safe.
type Recorder struct {
	sink    ProgressSink
	artwork ArtworkGenerator
	ch      chan *Session
	done    chan struct{}
}

// NewRecorder starts the background drain goroutine. Must call Close when done.
func NewRecorder(sink ProgressSink, artwork ArtworkGenerator) *Recorder {
	r := &Recorder{
		sink:    sink,
		artwork: artwork,
		ch:      make(chan *Session, 64),
		done:    make(chan struct{}),
	}
	go r.drain()
	return r
}

// SessionEnded queues an ended session's side effects. Drops the work with a
// warning when the queue is full rather than blocking the caller.
func (r *Recorder) SessionEnded(s *Session) {
	if r == nil {
		return
	}
	select {
	case r.ch <- s:
	default:
		slog.Warn("progress recorder queue full, dropping update", "session_id", s.ID)
	}
}

// Close drains pending work and stops the background goroutine.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	close(r.ch)
	<-r.done
}

func (r *Recorder) drain() {
	defer close(r.done)
	for s := range r.ch {
		r.handle(s)
	}
}

func (r *Recorder) handle(s *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	day := s.StartedAt
	if s.EndedAt != nil {
		day = *s.EndedAt
	}

	if err := r.sink.UpsertDaily(ctx, s.UserID, day, len(s.CompletedSentences), s.Confidence); err != nil {
		slog.Error("daily progress update", "session_id", s.ID, "error", err)
	}

	if len(s.CompletedSentences) < artworkThreshold || r.artwork == nil {
		return
	}

	art, err := r.artwork.GenerateThemeArt(ctx, s.CompletedSentences)
	if err != nil {
		slog.Error("theme artwork generation", "session_id", s.ID, "error", err)
		return
	}

	record := &progress.Artwork{
		ID:        uuid.NewString(),
		UserID:    s.UserID,
		SessionID: s.ID,
		ImageURL:  art.ImageURL,
		Theme:     art.Theme,
		Emotions:  art.Emotions,
		Colors:    art.Colors,
		Prompt:    art.Prompt,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.sink.SaveArtwork(ctx, record); err != nil {
		slog.Error("save artwork", "session_id", s.ID, "error", err)
	}
}
