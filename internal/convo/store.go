// Package convo holds per-user conversational memory used to ground analysis.
// Process-lifetime only; nothing here is ever persisted.
package convo

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/voicebridge/gateway/internal/metrics"
)

const (
	// MaxEntries caps each user's history; the oldest entry is evicted first.
	MaxEntries = 10

	// MaxAge is how long an entry stays eligible for grounding.
	MaxAge = 30 * time.Minute

	// SweepInterval is how often expired entries are purged.
	SweepInterval = 5 * time.Minute
)

// Entry is a compact record of one past turn.
type Entry struct {
	Transcript string
	Meaning    string
	Timestamp  time.Time
}

type userHistory struct {
	mu      sync.Mutex
	entries []Entry
}

// Store keeps a bounded, time-limited history per user. The outer lock only
// guards the user map; each history has its own lock so users never contend.
type Store struct {
	mu    sync.RWMutex
	users map[string]*userHistory
}

// NewStore creates an empty context store.
func NewStore() *Store {
	return &Store{users: make(map[string]*userHistory)}
}

// Append records a turn for the user, evicting the oldest entry past MaxEntries.
func (s *Store) Append(userID string, e Entry) {
	h := s.history(userID)
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, e)
	if len(h.entries) > MaxEntries {
		h.entries = h.entries[len(h.entries)-MaxEntries:]
	}
}

// Recent returns up to n of the user's freshest entries, oldest first.
// Expired entries are filtered at read time so a stale history never grounds
// an analysis even between sweeps.
func (s *Store) Recent(userID string, n int) []Entry {
	s.mu.RLock()
	h, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	cutoff := time.Now().Add(-MaxAge)

	h.mu.Lock()
	defer h.mu.Unlock()

	live := h.entries[:0:0]
	for _, e := range h.entries {
		if e.Timestamp.After(cutoff) {
			live = append(live, e)
		}
	}
	if len(live) > n {
		live = live[len(live)-n:]
	}
	out := make([]Entry, len(live))
	copy(out, live)
	return out
}

// Sweep removes entries older than maxAge for every user and drops users whose
// history emptied. The key set is snapshotted first so the map lock is never
// held across per-user work.
func (s *Store) Sweep(maxAge time.Duration) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	cutoff := time.Now().Add(-maxAge)

	for _, id := range ids {
		s.mu.RLock()
		h, ok := s.users[id]
		s.mu.RUnlock()
		if !ok {
			continue
		}

		h.mu.Lock()
		kept := h.entries[:0:0]
		for _, e := range h.entries {
			if e.Timestamp.After(cutoff) {
				kept = append(kept, e)
			}
		}
		swept := len(h.entries) - len(kept)
		h.entries = kept
		empty := len(h.entries) == 0
		h.mu.Unlock()

		if swept > 0 {
			metrics.ContextEntriesSwept.Add(float64(swept))
		}
		if empty {
			s.mu.Lock()
			if cur, ok := s.users[id]; ok && cur == h {
				cur.mu.Lock()
				if len(cur.entries) == 0 {
					delete(s.users, id)
				}
				cur.mu.Unlock()
			}
			s.mu.Unlock()
		}
	}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(MaxAge)
		case <-ctx.Done():
			slog.Info("context sweep stopped")
			return
		}
	}
}

func (s *Store) history(userID string) *userHistory {
	s.mu.RLock()
	h, ok := s.users[userID]
	s.mu.RUnlock()
	if ok {
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok = s.users[userID]; ok {
		return h
	}
	h = &userHistory{}
	s.users[userID] = h
	return h
}
