package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/voicebridge/gateway/internal/pipeline"
)

// connection is the per-transport state machine:
// Unauthenticated → Authenticated → (SessionActive ⇄ SessionIdle) → Closed.
// One reader goroutine consumes inbound frames; the write mutex serializes
// outbound events from the reader and any running turn goroutine.
type connection struct {
	ws     *websocket.Conn
	closed atomic.Bool

	writeMu sync.Mutex

	// Mutated only by the reader goroutine; read by turn goroutines.
	mu              sync.Mutex
	userID          string
	activeSessionID string
}

func newConnection(ws *websocket.Conn) *connection {
	return &connection{ws: ws}
}

func (c *connection) authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID != ""
}

func (c *connection) user() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *connection) setUser(userID string) {
	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()
}

func (c *connection) session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeSessionID
}

func (c *connection) setSession(sessionID string) {
	c.mu.Lock()
	c.activeSessionID = sessionID
	c.mu.Unlock()
}

// send marshals and writes one outbound message. Writes to a closed
// connection are discarded silently: a turn finishing after its connection
// died must not deliver partial results anywhere.
func (c *connection) send(v any) {
	if c.closed.Load() {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshal outbound message", "error", err)
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return
	}
	if err = c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Warn("write outbound message", "error", err)
	}
}

// sink adapts send to the pipeline's event callback.
func (c *connection) sink() pipeline.EventSink {
	return func(ev pipeline.Event) { c.send(ev) }
}

// close marks the connection dead and closes the transport. Safe to call
// more than once.
func (c *connection) close() {
	if c.closed.Swap(true) {
		return
	}
	c.ws.Close()
}
