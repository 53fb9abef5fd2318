package session

import (
	"sync"
	"time"

	"github.com/angelmondragon/catalogbrowser/pkg/metrics"
)

// Registry maps session ids to live sessions.
type Registry struct {
	mtx      sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
	metrics  *metrics.SessionMetrics
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithClock overrides the time source used to stamp session activity.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithMetrics reports registry size and evictions.
func WithMetrics(m *metrics.SessionMetrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the session for id, creating it on first use, and marks it active.
func (r *Registry) Get(id string) *Session {
	now := r.now()
	r.mtx.Lock()
	defer r.mtx.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		s = newSession(id, now)
		r.sessions[id] = s
		r.metrics.SetActive(len(r.sessions))
	}
	s.lastSeen = now
	return s
}

func (r *Registry) Len() int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than idleTTL and returns how many were removed. A
// session whose lock is held by an in-flight action is kept. A non-positive TTL disables
// eviction.
func (r *Registry) Sweep(now time.Time, idleTTL time.Duration) int {
	if idleTTL <= 0 {
		return 0
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	removed := 0
	for id, s := range r.sessions {
		if now.Sub(s.lastSeen) <= idleTTL {
			continue
		}
		if !s.mu.TryLock() {
			continue
		}
		delete(r.sessions, id)
		s.mu.Unlock()
		removed++
	}
	r.metrics.AddExpired(removed)
	r.metrics.SetActive(len(r.sessions))
	return removed
}
