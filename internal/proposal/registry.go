package proposal

import "sync"

// Registry keeps one session per job. Opening a job again replaces its
// previous session.
type Registry struct {
	store Store
	opts  []Option

	mu       sync.Mutex
	sessions map[uint]*Session
}

// NewRegistry creates a registry whose sessions share store and opts
func NewRegistry(store Store, opts ...Option) *Registry {
	return &Registry{
		store:    store,
		opts:     opts,
		sessions: make(map[uint]*Session),
	}
}

// Open creates a fresh session for jobID, discarding any prior one
func (r *Registry) Open(jobID uint) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := NewSession(r.store, jobID, r.opts...)
	r.sessions[jobID] = s
	return s
}

// Get returns the current session of jobID
func (r *Registry) Get(jobID uint) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[jobID]
	return s, ok
}

// Close forgets the session of jobID
func (r *Registry) Close(jobID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, jobID)
}

// Len returns the number of open sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
