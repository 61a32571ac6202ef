package core

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type registryEntry struct {
	owner   string
	sess    *EditSession
	touched time.Time
}

// Registry keeps the open edit sessions of a process. A session is only
// visible to the owner that opened it.
type Registry struct {
	clock clockwork.Clock

	mu       sync.Mutex
	sessions map[string]*registryEntry
}

func NewRegistry(clock clockwork.Clock) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{clock: clock, sessions: make(map[string]*registryEntry)}
}

func (r *Registry) Add(owner string, sess *EditSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.ID()] = &registryEntry{owner: owner, sess: sess, touched: r.clock.Now()}
}

// Get returns the session and refreshes its idle clock. Closed sessions are
// dropped on sight.
func (r *Registry) Get(owner, id string) (*EditSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok || e.owner != owner {
		return nil, ErrSessionNotFound
	}
	if e.sess.Closed() {
		delete(r.sessions, id)
		return nil, ErrSessionNotFound
	}
	e.touched = r.clock.Now()
	return e.sess, nil
}

// Remove closes and forgets a session.
func (r *Registry) Remove(owner, id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if !ok || e.owner != owner {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	r.mu.Unlock()
	e.sess.Close()
	return nil
}

// Sweep closes sessions untouched for longer than idle and returns how many
// were removed.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.clock.Now().Add(-idle)
	var stale []*EditSession
	r.mu.Lock()
	for id, e := range r.sessions {
		if e.sess.Closed() || e.touched.Before(cutoff) {
			stale = append(stale, e.sess)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()
	for _, s := range stale {
		s.Close()
	}
	return len(stale)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll tears every session down, e.g. on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*registryEntry)
	r.mu.Unlock()
	for _, e := range all {
		e.sess.Close()
	}
}
