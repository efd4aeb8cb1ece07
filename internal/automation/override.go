package automation

import (
	"sync"
	"time"
)

// OverrideStore tracks per-device manual override flags.
//
// A flag is set whenever a human issues a direct device command and makes
// the engine a no-op for that device until it expires. Expiry is checked
// lazily on each read; a periodic sweep removes dead entries so the map
// does not grow unbounded.
//
// All methods are thread-safe.
type OverrideStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewOverrideStore creates an empty override store.
func NewOverrideStore() *OverrideStore {
	return &OverrideStore{entries: make(map[string]time.Time)}
}

// Set flags a device as manually overridden until now+duration.
// Setting again extends the window (last write wins).
func (o *OverrideStore) Set(deviceID string, duration time.Duration, now time.Time) {
	if duration <= 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries[deviceID] = now.Add(duration)
}

// Active reports whether the device is currently overridden.
// An expired flag is removed on the spot.
func (o *OverrideStore) Active(deviceID string, now time.Time) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	expiresAt, ok := o.entries[deviceID]
	if !ok {
		return false
	}
	if !now.Before(expiresAt) {
		delete(o.entries, deviceID)
		return false
	}
	return true
}

// Clear removes the override for a device, resuming automation immediately.
func (o *OverrideStore) Clear(deviceID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.entries, deviceID)
}

// Sweep removes every expired entry and returns how many were removed.
// Called by the once-a-minute background sweep.
func (o *OverrideStore) Sweep(now time.Time) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	removed := 0
	for deviceID, expiresAt := range o.entries {
		if !now.Before(expiresAt) {
			delete(o.entries, deviceID)
			removed++
		}
	}
	return removed
}
