package wizard

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/oklog/ulid/v2"
)

// SessionTTL is how long an idle wizard session survives
const SessionTTL = 24 * time.Hour

const maxSessions = 4096

// Sessions holds in-flight wizard sessions keyed by opaque id.
// Sessions expire after SessionTTL of inactivity; expiry discards the
// draft entirely, staged files included.
type Sessions struct {
	cache *lru.LRU[string, *Wizard]
}

func NewSessions() *Sessions {
	return &Sessions{
		cache: lru.NewLRU[string, *Wizard](maxSessions, nil, SessionTTL),
	}
}

// Create starts a fresh session and returns its id
func (s *Sessions) Create() (string, *Wizard) {
	id := ulid.Make().String()
	w := New()
	s.cache.Add(id, w)
	return id, w
}

// Get returns the session for id, if it is still alive
func (s *Sessions) Get(id string) (*Wizard, bool) {
	return s.cache.Get(id)
}

// Delete discards a session
func (s *Sessions) Delete(id string) {
	s.cache.Remove(id)
}
