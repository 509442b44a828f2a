package session

import (
	"sort"
	"sync"
)

// Registry holds one SessionState per session id seen during a run
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*SessionState
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*SessionState)}
}

// Merge creates or updates the state for update.ID
func (r *Registry) Merge(update SessionState) {
	if update.ID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[update.ID]; ok {
		s.merge(update)
		return
	}
	s := update
	r.sessions[update.ID] = &s
}

// Get returns a copy of the state for id
func (r *Registry) Get(id string) (SessionState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.sessions[id]; ok {
		return *s, true
	}
	return SessionState{}, false
}

// Snapshot returns a copy of every known session keyed by id
func (r *Registry) Snapshot() map[string]SessionState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]SessionState, len(r.sessions))
	for id, s := range r.sessions {
		out[id] = *s
	}
	return out
}

// Sorted returns a copy of every known session, most recently active first
func (r *Registry) Sorted() []SessionState {
	snap := r.Snapshot()
	out := make([]SessionState, 0, len(snap))
	for _, s := range snap {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActivity.Equal(out[j].LastActivity) {
			return out[i].ID < out[j].ID
		}
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out
}

// Len returns the number of known sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
