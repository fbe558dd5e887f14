package ws

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicebridge/gateway/internal/auth"
	"github.com/voicebridge/gateway/internal/metrics"
	"github.com/voicebridge/gateway/internal/pipeline"
	"github.com/voicebridge/gateway/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TurnProcessor runs one turn end-to-end, emitting progressive events.
type TurnProcessor interface {
	Process(ctx context.Context, userID, activeSessionID string, turn pipeline.Turn, emit pipeline.EventSink)
}

// SessionOps is the slice of the session manager the dispatch layer uses.
type SessionOps interface {
	Start(ctx context.Context, userID string) (*session.Session, error)
	End(ctx context.Context, userID, sessionID string) (*session.Session, error)
	RecordFeedback(ctx context.Context, userID, sessionID string, accepted bool, sentence string) error
}

// HandlerConfig holds the shared collaborators for all connections.
type HandlerConfig struct {
	Turns         TurnProcessor
	Auth          auth.Verifier
	Sessions      SessionOps
	Registry      *Registry
	MaxConcurrent int
}

// Handler accepts WebSocket connections with admission control and routes
// inbound events per connection.
type Handler struct {
	cfg HandlerConfig
	sem chan struct{}
}

// NewHandler creates a WebSocket handler with a connection ceiling.
func NewHandler(cfg HandlerConfig) *Handler {
	maxConc := cfg.MaxConcurrent
	if maxConc <= 0 {
		maxConc = 100
	}
	return &Handler{cfg: cfg, sem: make(chan struct{}, maxConc)}
}

// ServeHTTP upgrades the connection and runs its read loop.
// Returns 503 at the connection ceiling.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case h.sem <- struct{}{}:
		defer func() { <-h.sem }()
	default:
		http.Error(w, "at capacity", http.StatusServiceUnavailable)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	metrics.ConnectionsActive.Inc()
	metrics.ConnectionsTotal.Inc()
	defer metrics.ConnectionsActive.Dec()

	c := newConnection(ws)
	defer h.disconnect(c)

	h.readLoop(c)
}

// disconnect releases the user's in-flight flag and registration. The active
// session is left open: sessions persist across transient disconnects and
// end only on an explicit end_session.
func (h *Handler) disconnect(c *connection) {
	c.close()
	if userID := c.user(); userID != "" {
		h.cfg.Registry.Deregister(userID, c)
		slog.Info("connection closed", "user_id", userID)
	}
}

func (h *Handler) readLoop(c *connection) {
	for {
		var msg clientMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			return
		}
		h.dispatch(c, &msg)
	}
}

func (h *Handler) dispatch(c *connection, msg *clientMessage) {
	switch msg.Type {
	case msgAuthenticate:
		h.handleAuthenticate(c, msg.Token)
	case msgProcessSpeech:
		h.handleProcessSpeech(c, msg)
	case msgStartSession:
		h.handleStartSession(c)
	case msgEndSession:
		h.handleEndSession(c, msg.SessionID)
	case msgFeedback:
		h.handleFeedback(c, msg)
	default:
		c.send(serverMessage{Type: msgError, Error: "unknown message type"})
	}
}

func (h *Handler) handleAuthenticate(c *connection, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, err := h.cfg.Auth.VerifyToken(ctx, token)
	if err != nil {
		metrics.AuthFailures.Inc()
		slog.Warn("authentication rejected", "error", err)
		c.send(serverMessage{Type: msgAuthenticationError, Error: "invalid or expired token"})
		return
	}

	c.setUser(userID)

	// Last registration wins; the stale connection is force-closed so it
	// cannot linger half-bound to the user.
	if prev := h.cfg.Registry.Register(userID, c); prev != nil && prev != c {
		prev.send(serverMessage{Type: msgError, Error: "replaced by a newer connection"})
		prev.close()
	}

	slog.Info("connection authenticated", "user_id", userID)
	c.send(serverMessage{Type: msgAuthenticated, UserID: userID})
}

func (h *Handler) handleProcessSpeech(c *connection, msg *clientMessage) {
	userID := c.user()
	if userID == "" {
		c.send(serverMessage{Type: msgError, Error: "not authenticated"})
		return
	}

	audio, err := base64.StdEncoding.DecodeString(msg.AudioData)
	if err != nil || len(audio) == 0 {
		c.send(serverMessage{Type: msgError, Error: "invalid audio data"})
		return
	}
	var frame []byte
	if msg.VideoFrame != "" {
		if frame, err = base64.StdEncoding.DecodeString(msg.VideoFrame); err != nil {
			c.send(serverMessage{Type: msgError, Error: "invalid video frame"})
			return
		}
	}

	// Single flight per user: no queueing, busy turns are rejected outright.
	token, ok := h.cfg.Registry.TryAcquire(userID)
	if !ok {
		metrics.TurnsBusyRejected.Inc()
		c.send(serverMessage{Type: msgProcessingBusy, Message: "a turn is already being processed"})
		return
	}

	c.send(serverMessage{Type: msgProcessingStarted, Timestamp: time.Now().UnixMilli()})

	mimeSubtype := msg.MimeSubtype
	if mimeSubtype == "" {
		mimeSubtype = "webm"
	}
	turn := pipeline.Turn{
		Audio:           audio,
		VideoFrame:      frame,
		MimeSubtype:     mimeSubtype,
		ClientTimestamp: msg.Timestamp,
	}
	sessionID := c.session()

	// The turn runs detached from the connection's lifetime: if the client
	// disconnects mid-turn it runs to completion with its events discarded,
	// and the flag is released either way.
	go func() {
		defer h.cfg.Registry.Release(userID, token)
		h.cfg.Turns.Process(context.Background(), userID, sessionID, turn, c.sink())
	}()
}

func (h *Handler) handleStartSession(c *connection) {
	userID := c.user()
	if userID == "" {
		c.send(serverMessage{Type: msgError, Error: "not authenticated"})
		return
	}
	if c.session() != "" {
		c.send(serverMessage{Type: msgError, Error: "a session is already active"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := h.cfg.Sessions.Start(ctx, userID)
	if err != nil {
		slog.Error("start session", "user_id", userID, "error", err)
		c.send(serverMessage{Type: msgError, Error: "could not start session"})
		return
	}

	c.setSession(s.ID)
	c.send(serverMessage{Type: msgSessionStarted, SessionID: s.ID})
}

func (h *Handler) handleEndSession(c *connection, sessionID string) {
	userID := c.user()
	if userID == "" {
		c.send(serverMessage{Type: msgError, Error: "not authenticated"})
		return
	}
	if sessionID == "" {
		sessionID = c.session()
	}
	if sessionID == "" {
		c.send(serverMessage{Type: msgError, Error: "no active session"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := h.cfg.Sessions.End(ctx, userID, sessionID)
	if err != nil {
		h.sendSessionError(c, err)
		return
	}

	if c.session() == sessionID {
		c.setSession("")
	}
	stats := session.StatsFor(s)
	c.send(serverMessage{
		Type:            msgSessionEnded,
		SessionID:       s.ID,
		DurationSeconds: s.DurationSeconds,
		Stats:           &stats,
	})
}

func (h *Handler) handleFeedback(c *connection, msg *clientMessage) {
	userID := c.user()
	if userID == "" {
		c.send(serverMessage{Type: msgError, Error: "not authenticated"})
		return
	}
	if msg.SessionID == "" || msg.PredictionAccepted == nil {
		c.send(serverMessage{Type: msgError, Error: "session_id and prediction_accepted are required"})
		return
	}

	sentence := msg.ActualIntent
	if sentence == "" {
		sentence = msg.Suggestion
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.cfg.Sessions.RecordFeedback(ctx, userID, msg.SessionID, *msg.PredictionAccepted, sentence); err != nil {
		h.sendSessionError(c, err)
	}
}

func (h *Handler) sendSessionError(c *connection, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		c.send(serverMessage{Type: msgError, Error: "session not found"})
	case errors.Is(err, session.ErrEnded):
		c.send(serverMessage{Type: msgError, Error: "session already ended"})
	default:
		slog.Error("session operation failed", "error", err)
		c.send(serverMessage{Type: msgError, Error: "session operation failed"})
	}
}
