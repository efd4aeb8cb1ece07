package automation

import (
	"sync"
	"time"
)

// Gate suppresses repeated actuation or alerting inside a configured window.
//
// Each key (deviceId+triggerKind, or an alert category) holds at most one
// entry. TryAcquire is an atomic check-and-set: the first caller for a key
// wins and records an expiry, every later caller loses until the entry
// expires. Expired entries are deleted lazily on the next check — there is
// no ticking cleanup thread.
//
// Callers that lose skip their action rather than queue it: a missed
// automatic action is corrected on the next reading after expiry.
//
// All methods are thread-safe.
type Gate struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewGate creates an empty cooldown gate.
func NewGate() *Gate {
	return &Gate{entries: make(map[string]time.Time)}
}

// TryAcquire attempts to start a cooldown window for the key.
//
// Parameters:
//   - key: Cooldown identity (e.g. "window:temperature")
//   - window: Cooldown duration; zero or negative always acquires
//   - now: Current time, injected for testability
//
// Returns:
//   - bool: true if acquired (caller may act), false while an unexpired
//     entry exists (caller must skip)
func (g *Gate) TryAcquire(key string, window time.Duration, now time.Time) bool {
	if window <= 0 {
		return true
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if expiresAt, ok := g.entries[key]; ok {
		if now.Before(expiresAt) {
			return false
		}
		delete(g.entries, key)
	}

	g.entries[key] = now.Add(window)
	return true
}

// Remaining reports how long the key stays cooling from now.
// Returns zero when the key is free.
func (g *Gate) Remaining(key string, now time.Time) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	expiresAt, ok := g.entries[key]
	if !ok || !now.Before(expiresAt) {
		return 0
	}
	return expiresAt.Sub(now)
}

// Clear removes the entry for a key, ending its cooldown early.
func (g *Gate) Clear(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, key)
}

// Len returns the number of entries, including expired ones not yet
// lazily collected.
func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
