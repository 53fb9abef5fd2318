package session

import (
	"sync"
	"time"

	"github.com/angelmondragon/catalogbrowser/internal/cart"
	"github.com/angelmondragon/catalogbrowser/internal/history"
)

// State is the mutable per-session data. It is only reachable through Session.Do.
type State struct {
	Cart    *cart.Cart
	History *history.Log
}

// Session owns one shopper's cart and search history. Do serializes every access, so a
// checkout and its ledger append are observed as one step by other requests on the session.
type Session struct {
	id string

	mu    sync.Mutex
	state State

	// guarded by the owning Registry's lock
	lastSeen time.Time
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		id:       id,
		lastSeen: now,
		state: State{
			Cart:    cart.New(),
			History: history.New(),
		},
	}
}

func (s *Session) ID() string {
	return s.id
}

// Do runs fn while holding the session lock and returns its error.
func (s *Session) Do(fn func(*State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.state)
}
