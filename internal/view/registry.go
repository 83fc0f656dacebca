package view

import (
	"log"
	"sync"
	"time"
)

// Factory builds the view for a new session.
type Factory func(sessionID string) *View

type session struct {
	view     *View
	lastSeen time.Time
}

// DefaultMaxSessions bounds the registry when no limit is configured.
const DefaultMaxSessions = 10000

// Registry holds one View per renderer session.
type Registry struct {
	mu          sync.Mutex
	sessions    map[string]*session
	factory     Factory
	now         func() time.Time
	maxSessions int
}

// NewRegistry creates an empty registry holding at most DefaultMaxSessions.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		sessions:    make(map[string]*session),
		factory:     factory,
		now:         time.Now,
		maxSessions: DefaultMaxSessions,
	}
}

// WithMaxSessions caps the number of live sessions. When full, creating a
// session closes the least recently seen one. n <= 0 keeps the default.
func (r *Registry) WithMaxSessions(n int) *Registry {
	if n > 0 {
		r.maxSessions = n
	}
	return r
}

// WithClock replaces the time source. Intended for tests.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Get returns the session's view, creating an unmounted one if needed.
func (r *Registry) Get(sessionID string) *View {
	r.mu.Lock()

	if s, ok := r.sessions[sessionID]; ok {
		s.lastSeen = r.now()
		r.mu.Unlock()
		return s.view
	}

	var evicted *View
	if len(r.sessions) >= r.maxSessions {
		evicted = r.evictOldestLocked()
	}

	s := &session{view: r.factory(sessionID), lastSeen: r.now()}
	r.sessions[sessionID] = s
	total := len(r.sessions)
	r.mu.Unlock()

	if evicted != nil {
		evicted.Close()
	}
	log.Printf("[Registry] New session %s (sessions: %d)", sessionID, total)
	return s.view
}

// Lookup returns the session's view without creating one.
func (r *Registry) Lookup(sessionID string) (*View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}
	s.lastSeen = r.now()
	return s.view, true
}

func (r *Registry) evictOldestLocked() *View {
	var (
		oldestID string
		oldest   *session
	)
	for id, s := range r.sessions {
		if oldest == nil || s.lastSeen.Before(oldest.lastSeen) {
			oldestID, oldest = id, s
		}
	}
	if oldest == nil {
		return nil
	}
	delete(r.sessions, oldestID)
	log.Printf("[Registry] Session limit %d reached, evicted %s", r.maxSessions, oldestID)
	return oldest.view
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ExpireIdle closes and forgets sessions not seen within idle.
func (r *Registry) ExpireIdle(idle time.Duration) int64 {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var expired []*View
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			expired = append(expired, s.view)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, v := range expired {
		v.Close()
	}
	if len(expired) > 0 {
		log.Printf("[Registry] Expired %d idle sessions (idle: %v)", len(expired), idle)
	}
	return int64(len(expired))
}

// Close closes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.view.Close()
	}
}
