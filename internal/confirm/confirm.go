// Package confirm tracks short-lived, single-use grants that let a user see
// the last announcement again after a check found nothing new.
package confirm

import (
	"sync"
	"time"
)

// Tracker holds at most one outstanding grant per requester.
type Tracker struct {
	mu      sync.Mutex
	window  time.Duration
	expires map[string]time.Time
}

// New returns a Tracker whose grants last window.
func New(window time.Duration) *Tracker {
	return &Tracker{
		window:  window,
		expires: make(map[string]time.Time),
	}
}

// Window is the lifetime of a grant.
func (t *Tracker) Window() time.Duration { return t.window }

// Grant issues a grant for requester that expires window after now,
// replacing any outstanding one.
func (t *Tracker) Grant(requester string, now time.Time) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	expiry := now.Add(t.window)
	t.expires[requester] = expiry
	return expiry
}

// Consume reports whether requester holds a grant that has not expired at
// now, removing it if so. Expired grants are left in place; the next Grant
// for the same requester overwrites them.
func (t *Tracker) Consume(requester string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	expiry, ok := t.expires[requester]
	if !ok || now.After(expiry) {
		return false
	}
	delete(t.expires, requester)
	return true
}
