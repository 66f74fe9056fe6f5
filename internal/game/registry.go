package game

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry owns every live session until it is removed.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	timers   map[string]*time.Timer
	closed   bool
}

// NewRegistry creates an empty session registry
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		timers:   make(map[string]*time.Timer),
	}
}

// generateSessionID generates a unique session ID
func generateSessionID() string {
	return "game_" + uuid.NewString()
}

// Create stores a new active session for the given roster
func (r *Registry) Create(players []string, now time.Time) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := generateSessionID()
	for _, exists := r.sessions[id]; exists; _, exists = r.sessions[id] {
		id = generateSessionID()
	}
	s := newSession(id, players, now)
	r.sessions[id] = s
	return s
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	if t, ok := r.timers[id]; ok {
		t.Stop()
		delete(r.timers, id)
	}
}

// RemoveAfter schedules removal of a session once d has elapsed.
func (r *Registry) RemoveAfter(id string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if _, ok := r.sessions[id]; !ok {
		return
	}
	if t, ok := r.timers[id]; ok {
		t.Stop()
	}
	r.timers[id] = time.AfterFunc(d, func() {
		r.Remove(id)
		log.Printf("[SESSION] Session %s removed after retention window", id)
	})
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List returns the registered sessions ordered by start time.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].startTime.Equal(out[j].startTime) {
			return out[i].id < out[j].id
		}
		return out[i].startTime.Before(out[j].startTime)
	})
	return out
}

// Close stops every pending removal timer.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}
