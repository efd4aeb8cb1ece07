package device

import (
	"sync"
)

// Store is the single authoritative in-memory map of current device state.
//
// Every component reads and writes device state through this store. The
// compare-and-set primitive is the core correctness tool: writers supply
// the state they believe is current, and a mismatch means a concurrent
// writer already moved the device — the caller must re-read and decide
// whether its intent still applies.
//
// All methods are thread-safe.
type Store struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewStore creates an empty device state store.
func NewStore() *Store {
	return &Store{states: make(map[string]State)}
}

// Seed installs an initial state for a device, overwriting any existing
// entry. Used at startup to load persisted state; not for runtime writes.
func (s *Store) Seed(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.DeviceID] = state
}

// Get retrieves the current state for a device.
//
// Returns:
//   - State: Value copy of the current state
//   - error: ErrDeviceNotFound if the device ID is unknown
func (s *Store) Get(deviceID string) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[deviceID]
	if !ok {
		return State{}, ErrDeviceNotFound
	}
	return state, nil
}

// Snapshot returns a value copy of every device state.
// Used to build the device:state:sync payload for new WebSocket clients.
func (s *Store) Snapshot() []State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]State, 0, len(s.states))
	for _, state := range s.states {
		snapshot = append(snapshot, state)
	}
	return snapshot
}

// CompareAndSet atomically replaces the state for a device, but only if
// the stored state still equals expectedPrev (UpdatedAt excluded).
//
// Parameters:
//   - deviceID: Device to update
//   - expectedPrev: The state the caller last read
//   - next: The replacement state
//
// Returns:
//   - bool: true if the swap happened; false if a concurrent writer got
//     there first or the device is unknown
func (s *Store) CompareAndSet(deviceID string, expectedPrev, next State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.states[deviceID]
	if !ok {
		return false
	}
	if !current.Equal(expectedPrev) {
		return false
	}

	s.states[deviceID] = next
	return true
}

// Len returns the number of devices in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}
