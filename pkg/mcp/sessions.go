package mcp

import "sync"

// SessionRegistry maps learner IDs to the MCP session acting for them.
// Populated when a learner tool is called with a learner_id.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]string // learnerID → sessionID
}

// NewSessionRegistry creates a new empty SessionRegistry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]string)}
}

// Register associates a learner with an MCP session. A later session
// replaces an earlier one.
func (r *SessionRegistry) Register(learnerID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[learnerID] = sessionID
}

// SessionFor returns the MCP session acting for the learner, if any.
func (r *SessionRegistry) SessionFor(learnerID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.sessions[learnerID]
	return sid, ok
}

// Remove deletes every learner mapping for the given MCP session.
func (r *SessionRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for lid, sid := range r.sessions {
		if sid == sessionID {
			delete(r.sessions, lid)
		}
	}
}
