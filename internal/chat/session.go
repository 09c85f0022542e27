package chat

import "sync"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one role-tagged message in a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SessionStore keeps per-session conversation history in memory for the
// life of the process. Session keys are opaque strings chosen by the
// caller; a session is created on first append and never expires.
//
// Each session is capped at maxTurns turns; the oldest are dropped first.
// The store is safe for concurrent use; appends against the same key are
// serialized by the store lock.
type SessionStore struct {
	mu       sync.RWMutex
	maxTurns int
	sessions map[string][]Turn
}

func NewSessionStore(maxTurns int) *SessionStore {
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &SessionStore{
		maxTurns: maxTurns,
		sessions: make(map[string][]Turn),
	}
}

// Append adds a turn to the session, creating it if absent, and evicts the
// oldest turns beyond the cap.
func (s *SessionStore) Append(sessionID, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.sessions[sessionID], Turn{Role: role, Content: content})
	if len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}
	s.sessions[sessionID] = turns
}

// History returns a copy of the session's turns in order, or nil for an
// unknown session.
func (s *SessionStore) History(sessionID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[sessionID]
	if len(turns) == 0 {
		return nil
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Len reports the number of turns in the session.
func (s *SessionStore) Len(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[sessionID])
}
