// Package session keeps short conversation histories in process memory.
package session

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Turn is one question and the answer given to it.
type Turn struct {
	Question string
	Answer   string
	At       time.Time
}

// Store holds histories keyed by session ID. The least recently used
// session is evicted once maxSessions is reached and a session expires TTL
// after its last turn. Each history keeps only its newest maxTurns turns.
type Store struct {
	mu       sync.Mutex
	cache    *expirable.LRU[string, []Turn]
	maxTurns int
}

// New creates a Store. Non-positive arguments fall back to 256 sessions,
// a 2h TTL and 20 turns.
func New(maxSessions int, ttl time.Duration, maxTurns int) *Store {
	if maxSessions <= 0 {
		maxSessions = 256
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &Store{
		cache:    expirable.NewLRU[string, []Turn](maxSessions, nil, ttl),
		maxTurns: maxTurns,
	}
}

// History returns a copy of the turns recorded for id, oldest first. An
// empty id has no history.
func (s *Store) History(id string) []Turn {
	if id == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	turns, ok := s.cache.Get(id)
	if !ok {
		return nil
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Append records a turn for id, dropping the oldest turns beyond the cap.
// It is a no-op for an empty id.
func (s *Store) Append(id string, t Turn) {
	if id == "" {
		return
	}
	if t.At.IsZero() {
		t.At = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	turns, _ := s.cache.Get(id)
	next := make([]Turn, 0, len(turns)+1)
	next = append(next, turns...)
	next = append(next, t)
	if len(next) > s.maxTurns {
		next = next[len(next)-s.maxTurns:]
	}
	s.cache.Add(id, next)
}

// Reset forgets the history for id.
func (s *Store) Reset(id string) {
	s.cache.Remove(id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return s.cache.Len()
}
