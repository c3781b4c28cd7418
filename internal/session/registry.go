// Package session tracks per-client conversation state.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tooldesk-io/tooldesk/pkg/protocol"
)

// DefaultIdleTTL is how long a session survives without a turn.
const DefaultIdleTTL = 30 * time.Minute

// Session is one client's accumulated conversation with the intake agent.
// All access to the history goes through Turn, which serializes turns on the
// same session even when the client fires them concurrently.
//
// lastUsed is atomic so the eviction sweep can inspect idle time without
// waiting behind a turn that is blocked on the provider.
type Session struct {
	mu       sync.Mutex
	history  []protocol.ChatMessage
	lastUsed atomic.Int64 // unix nanos
	now      func() time.Time
}

// Turn runs one conversation turn. fn receives the current history and
// returns the history to keep. If fn returns an error the history is left
// untouched, so a failed provider call can be retried cleanly.
func (s *Session) Turn(fn func(history []protocol.ChatMessage) ([]protocol.ChatMessage, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	updated, err := fn(s.history)
	s.touch()
	if err != nil {
		return err
	}
	s.history = updated
	return nil
}

// History returns a copy of the session history (tests and diagnostics).
func (s *Session) History() []protocol.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) touch() {
	s.lastUsed.Store(s.now().UnixNano())
}

// Registry maps session identifiers to live sessions. Creation is atomic:
// concurrent first-contact requests for the same identifier get the same
// session.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	seed     []protocol.ChatMessage
	idleTTL  time.Duration
	now      func() time.Time
}

// NewRegistry creates a Registry. Every new session starts with a copy of
// seed (typically just the system instruction). idleTTL <= 0 selects
// DefaultIdleTTL.
func NewRegistry(seed []protocol.ChatMessage, idleTTL time.Duration) *Registry {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Registry{
		sessions: make(map[string]*Session),
		seed:     seed,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// SetClock overrides the registry's time source (tests). Must be called
// before any session exists.
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

// GetOrCreate returns the session for id, creating it on first contact.
func (r *Registry) GetOrCreate(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s
	}

	history := make([]protocol.ChatMessage, len(r.seed))
	copy(history, r.seed)
	s := &Session{
		history: history,
		now:     r.now,
	}
	s.touch()
	r.sessions[id] = s
	return s
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Evict removes sessions idle longer than the TTL as of now and returns how
// many were dropped. A session mid-turn has a fresh lastUsed and survives.
func (r *Registry) Evict(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, s := range r.sessions {
		if now.Sub(time.Unix(0, s.lastUsed.Load())) > r.idleTTL {
			delete(r.sessions, id)
			evicted++
		}
	}
	return evicted
}
