package session

import (
	"log/slog"
	"sync"
	"time"
)

// Session is one browser's transcript.
type Session struct {
	ID         string
	Transcript *MessageBuffer

	mu       sync.Mutex
	lastSeen time.Time
	conns    int
}

// LastSeen returns when the session was last used.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Connected reports whether a live connection is attached to the session.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns > 0
}

// expired reports whether the session has no connection and was last used before cutoff.
func (s *Session) expired(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns == 0 && s.lastSeen.Before(cutoff)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// Manager owns every live session, keyed by session ID.
type Manager struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	bufferSize int
	now        func() time.Time
}

// NewManager creates a manager whose transcripts hold bufferSize messages each.
func NewManager(bufferSize int) *Manager {
	return &Manager{
		sessions:   make(map[string]*Session),
		bufferSize: bufferSize,
		now:        time.Now,
	}
}

// Get returns the session for id, creating it on first use, and marks it active.
func (m *Manager) Get(id string) *Session {
	now := m.now()

	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.touch(now)
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.touch(now)
		return s
	}
	s = &Session{ID: id, Transcript: NewMessageBuffer(m.bufferSize), lastSeen: now}
	m.sessions[id] = s
	slog.Info("Chat session created", "session_id", id)
	return s
}

// Attach returns the session for id like Get and pins it for a live
// connection. A pinned session is never expired. Call Detach when the
// connection ends.
func (m *Manager) Attach(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	s, ok := m.sessions[id]
	if !ok {
		s = &Session{ID: id, Transcript: NewMessageBuffer(m.bufferSize)}
		m.sessions[id] = s
		slog.Info("Chat session created", "session_id", id)
	}
	s.mu.Lock()
	s.conns++
	s.lastSeen = now
	s.mu.Unlock()
	return s
}

// Detach unpins a session attached with Attach. Its idle time starts now.
func (m *Manager) Detach(s *Session) {
	now := m.now()
	s.mu.Lock()
	if s.conns > 0 {
		s.conns--
	}
	s.lastSeen = now
	s.mu.Unlock()
}

// Touch marks a session active without creating it.
func (m *Manager) Touch(id string) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.touch(m.now())
	}
}

// Remove drops a session and its transcript.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Expire removes sessions with no live connection that have been idle for
// longer than ttl and returns their IDs.
func (m *Manager) Expire(ttl time.Duration) []string {
	cutoff := m.now().Add(-ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []string
	for id, s := range m.sessions {
		if s.expired(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, id)
		}
	}
	return expired
}
