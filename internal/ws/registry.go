package ws

import "sync"

// userSlot holds the per-user shared state: the registered connection and the
// single-flight processing flag. Each slot has its own lock so turns from
// different users never contend. turnGen counts acquisitions so a release
// from an older turn cannot clear a newer turn's flag.
type userSlot struct {
	mu       sync.Mutex
	conn     *connection
	inFlight bool
	turnGen  uint64
}

// Registry maps each user to at most one live connection and tracks the
// per-user in-flight turn flag. The outer lock only guards the map.
type Registry struct {
	mu    sync.RWMutex
	users map[string]*userSlot
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{users: make(map[string]*userSlot)}
}

// Register binds the connection to the user and returns the connection it
// replaced, if any. The caller decides what to do with the old one.
func (r *Registry) Register(userID string, c *connection) *connection {
	slot := r.slot(userID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	prev := slot.conn
	slot.conn = c
	return prev
}

// Deregister unbinds the connection, releasing any in-flight flag it held.
// A stale deregistration (the user already re-registered on a newer
// connection) leaves the newer binding untouched.
func (r *Registry) Deregister(userID string, c *connection) {
	r.mu.RLock()
	slot, ok := r.users[userID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	slot.mu.Lock()
	if slot.conn == c {
		slot.conn = nil
		slot.inFlight = false
	}
	slot.mu.Unlock()
}

// TryAcquire sets the user's in-flight flag if it is clear and returns a
// token identifying this acquisition. Returns false when a turn is already
// executing; the caller must reject, not queue.
func (r *Registry) TryAcquire(userID string) (uint64, bool) {
	slot := r.slot(userID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.inFlight {
		return 0, false
	}
	slot.inFlight = true
	slot.turnGen++
	return slot.turnGen, true
}

// Release clears the user's in-flight flag, but only for the acquisition the
// token came from. A turn that outlived its connection (the flag was already
// cleared on deregistration, and possibly re-acquired by a newer turn) is a
// no-op, mirroring the slot.conn == c check in Deregister.
func (r *Registry) Release(userID string, token uint64) {
	r.mu.RLock()
	slot, ok := r.users[userID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	slot.mu.Lock()
	if slot.inFlight && slot.turnGen == token {
		slot.inFlight = false
	}
	slot.mu.Unlock()
}

func (r *Registry) slot(userID string) *userSlot {
	r.mu.RLock()
	slot, ok := r.users[userID]
	r.mu.RUnlock()
	if ok {
		return slot
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, ok = r.users[userID]; ok {
		return slot
	}
	slot = &userSlot{}
	r.users[userID] = slot
	return slot
}
