package notify

import (
	"sync"
	"time"

	"botforge/internal/model"

	"github.com/google/uuid"
)

// DefaultTimeout is applied to notifications created without one.
const DefaultTimeout = 5000 * time.Millisecond

// Notification is one ephemeral user-facing message
type Notification struct {
	ID       string         `json:"id"`
	Severity model.Severity `json:"severity"`
	Message  string         `json:"message"`
	Detail   string         `json:"detail,omitempty"`
	Timeout  time.Duration  `json:"timeout"`

	expiresAt time.Time
}

// Center is an insertion-ordered queue of notifications. Entries are
// removed after their timeout elapses or on explicit dismissal.
// Duplicates are not coalesced.
type Center struct {
	mu      sync.Mutex
	entries []Notification
	now     func() time.Time
}

// NewCenter creates a notification center using the wall clock
func NewCenter() *Center {
	return NewCenterWithClock(time.Now)
}

// NewCenterWithClock creates a center with an injected clock, for tests
func NewCenterWithClock(now func() time.Time) *Center {
	return &Center{now: now}
}

// Add appends a notification and returns its generated ID
func (c *Center) Add(severity model.Severity, message, detail string, timeout time.Duration) string {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n := Notification{
		ID:        uuid.NewString(),
		Severity:  severity,
		Message:   message,
		Detail:    detail,
		Timeout:   timeout,
		expiresAt: c.now().Add(timeout),
	}
	c.entries = append(c.entries, n)
	return n.ID
}

// Success appends a success notification with the default timeout
func (c *Center) Success(message string) string {
	return c.Add(model.SeveritySuccess, message, "", 0)
}

// Error appends an error notification carrying an optional detail
func (c *Center) Error(message, detail string) string {
	return c.Add(model.SeverityError, message, detail, 0)
}

// List returns live notifications in insertion order, dropping any
// whose timeout has elapsed.
func (c *Center) List() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prune()
	out := make([]Notification, len(c.entries))
	copy(out, c.entries)
	return out
}

// Dismiss removes a notification by ID. Unknown IDs are a no-op.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.entries[:0]
	for _, n := range c.entries {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	c.entries = kept
}

// prune drops expired entries; callers must hold mu
func (c *Center) prune() {
	now := c.now()
	kept := c.entries[:0]
	for _, n := range c.entries {
		if n.expiresAt.After(now) {
			kept = append(kept, n)
		}
	}
	c.entries = kept
}
