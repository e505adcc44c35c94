package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"shackbot/internal/order"
)

// ErrNotFound is returned for unknown session ids
var ErrNotFound = errors.New("session not found")

// Registry holds the live sessions of this process
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	prices   order.PriceBook
	now      func() time.Time
}

// NewRegistry creates an empty registry. Orders of every session are
// priced from prices.
func NewRegistry(prices order.PriceBook) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		prices:   prices,
		now:      time.Now,
	}
}

// Create starts a session with a fresh random id
func (r *Registry) Create() *Session {
	return r.GetOrCreate(uuid.New().String())
}

// Get returns the session with id
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// GetOrCreate returns the session with id, creating it if needed
func (r *Registry) GetOrCreate(id string) *Session {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s = New(id, r.prices, r.now())
	r.sessions[id] = s
	return s
}

// Delete forgets a session
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Expire drops sessions idle for longer than maxIdle and returns how many
// were removed.
func (r *Registry) Expire(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		if !s.mu.TryLock() {
			continue
		}
		idle := s.updatedAt.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
