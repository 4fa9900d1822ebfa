package server

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tripnote/tripnote/internal/session"
)

// Factory builds a fresh idle session with the server's collaborators.
type Factory func() *session.Session

// Registry holds the live sessions keyed by id. Sessions are
// in-memory only and vanish with the process.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	factory  Factory
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{
		sessions: make(map[string]*session.Session),
		factory:  factory,
	}
}

// Create registers a fresh idle session and returns its id.
func (r *Registry) Create() (string, *session.Session) {
	sess := r.factory()
	id := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = sess
	return id, sess
}

func (r *Registry) Get(id string) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// Reset swaps the session for a fresh idle one under the same id,
// discarding document, itinerary and messages atomically.
func (r *Registry) Reset(id string) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	fresh := sess.Reset()
	r.sessions[id] = fresh
	return fresh, true
}
