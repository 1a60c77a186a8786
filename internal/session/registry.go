// Package session tracks live client sessions per user. The registry is
// per-process and entirely ephemeral: it is rebuilt from reconnects after a
// restart and carries no durability guarantee.
package session

import "sync"

// Sink receives pushed payloads for one live session.
type Sink interface {
	Send(payload []byte) error
}

// Registry maps userID to the user's live sessions. All methods are safe
// under concurrent connect/disconnect.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]map[string]Sink
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]map[string]Sink),
	}
}

func (r *Registry) Register(userID, sessionID string, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[userID] == nil {
		r.sessions[userID] = make(map[string]Sink)
	}
	r.sessions[userID][sessionID] = sink
}

func (r *Registry) Unregister(userID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sinks, ok := r.sessions[userID]
	if !ok {
		return
	}

	delete(sinks, sessionID)
	if len(sinks) == 0 {
		delete(r.sessions, userID)
	}
}

// Sessions returns a snapshot of the user's live sinks.
func (r *Registry) Sessions(userID string) []Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := make([]Sink, 0, len(r.sessions[userID]))
	for _, sink := range r.sessions[userID] {
		sinks = append(sinks, sink)
	}

	return sinks
}

func (r *Registry) Count(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions[userID])
}
