// Package ratelimit tracks per-user message timestamps in a sliding window.
// One timestamp sequence serves both the throttle window and the shorter
// escalation burst window, so the two signals can never disagree about
// what the user actually sent.
package ratelimit

import (
	"sync"
	"time"
)

// Default limits, matching the shipped configuration.
const (
	DefaultWindow      = 2 * time.Minute
	DefaultMaxMessages = 15
)

// Config holds the throttle window settings.
type Config struct {
	// Window is the throttle sliding window. Zero means DefaultWindow.
	Window time.Duration

	// MaxMessages is the number of messages within Window at which a
	// user becomes throttled. Zero means DefaultMaxMessages.
	MaxMessages int
}

func (c *Config) defaults() {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.MaxMessages <= 0 {
		c.MaxMessages = DefaultMaxMessages
	}
}

// Tracker records message timestamps per user. Stored timestamps are
// pruned to the throttle window on every limit check; rate-limit state
// self-heals purely through time passing and through being checked,
// with no separate cleanup pass required.
type Tracker struct {
	mu         sync.Mutex
	timestamps map[string][]time.Time

	window      time.Duration
	maxMessages int

	// now is injectable for testing. Defaults to time.Now.
	now func() time.Time
}

// NewTracker creates an empty Tracker.
func NewTracker(cfg Config) *Tracker {
	cfg.defaults()
	return &Tracker{
		timestamps:  make(map[string][]time.Time),
		window:      cfg.Window,
		maxMessages: cfg.MaxMessages,
		now:         time.Now,
	}
}

// Record appends the current time to the user's timestamp sequence.
// Throttled messages are recorded too; only conversation memory skips them.
func (t *Tracker) Record(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timestamps[userID] = append(t.timestamps[userID], t.now())
}

// IsLimited prunes the user's timestamps to the throttle window and
// reports whether the remaining count has reached the limit. Pruning is
// destructive: the pruned sequence replaces the stored one.
func (t *Tracker) IsLimited(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	recent := t.pruneLocked(userID)
	return len(recent) >= t.maxMessages
}

// BurstCount returns the number of the user's timestamps within the
// trailing window. Used for escalation burst detection with a window
// distinct from (and typically shorter than) the throttle window.
func (t *Tracker) BurstCount(userID string, window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	count := 0
	for _, ts := range t.timestamps[userID] {
		if now.Sub(ts) < window {
			count++
		}
	}
	return count
}

// Users returns the number of users with stored timestamps.
func (t *Tracker) Users() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timestamps)
}

// Prune drops users whose every timestamp has aged out of the throttle
// window and returns the number of users removed. The tracker self-heals
// on access; this sweep bounds memory for users that never come back.
func (t *Tracker) Prune() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	pruned := 0
	for userID := range t.timestamps {
		if recent := t.pruneLocked(userID); len(recent) == 0 {
			delete(t.timestamps, userID)
			pruned++
		}
	}
	return pruned
}

// pruneLocked filters the user's timestamps to the throttle window,
// stores the result, and returns it. Caller must hold the lock.
func (t *Tracker) pruneLocked(userID string) []time.Time {
	stored, ok := t.timestamps[userID]
	if !ok {
		return nil
	}

	now := t.now()
	recent := stored[:0]
	for _, ts := range stored {
		if now.Sub(ts) < t.window {
			recent = append(recent, ts)
		}
	}
	t.timestamps[userID] = recent
	return recent
}
