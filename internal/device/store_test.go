package device

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func testState(id string, typ Type, status bool) State {
	action := typ.ActionForStatus(status)
	return State{
		DeviceID:    id,
		DeviceType:  typ,
		Status:      status,
		LastCommand: action,
		ControlMode: ControlModeAuto,
		UpdatedAt:   time.Now().UTC(),
	}
}

// =============================================================================
// Store Tests
// =============================================================================

func TestStore_GetUnknownDevice(t *testing.T) {
	store := NewStore()

	_, err := store.Get("ghost")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("Get() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestStore_SeedAndGet(t *testing.T) {
	store := NewStore()
	seeded := testState("window", TypeWindow, false)
	store.Seed(seeded)

	got, err := store.Get("window")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.Equal(seeded) {
		t.Errorf("Get() = %+v, want %+v", got, seeded)
	}
}

func TestStore_Snapshot(t *testing.T) {
	store := NewStore()
	store.Seed(testState("window", TypeWindow, false))
	store.Seed(testState("pump", TypePump, true))
	store.Seed(testState("light", TypeLight, false))

	snapshot := store.Snapshot()
	if len(snapshot) != 3 {
		t.Fatalf("Snapshot() length = %d, want 3", len(snapshot))
	}

	// Snapshot must be a value copy: mutating it cannot change the store.
	snapshot[0].Status = !snapshot[0].Status
	fresh, err := store.Get(snapshot[0].DeviceID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if fresh.Status == snapshot[0].Status {
		t.Error("mutating a snapshot entry leaked into the store")
	}
}

func TestStore_CompareAndSet(t *testing.T) {
	store := NewStore()
	initial := testState("pump", TypePump, false)
	store.Seed(initial)

	next := initial
	next.Status = true
	next.LastCommand = ActionOn
	next.UpdatedAt = time.Now().UTC()

	if !store.CompareAndSet("pump", initial, next) {
		t.Fatal("CompareAndSet() = false with correct expected state")
	}

	got, _ := store.Get("pump")
	if !got.Status {
		t.Error("state not updated after successful CompareAndSet")
	}

	// A second writer still holding the stale state must lose.
	stale := initial
	stale.LastCommand = ActionOff
	if store.CompareAndSet("pump", initial, stale) {
		t.Error("CompareAndSet() = true with stale expected state")
	}
}

func TestStore_CompareAndSet_UnknownDevice(t *testing.T) {
	store := NewStore()
	state := testState("ghost", TypeLight, false)

	if store.CompareAndSet("ghost", state, state) {
		t.Error("CompareAndSet() = true for unknown device")
	}
}

func TestStore_CompareAndSet_IgnoresUpdatedAt(t *testing.T) {
	store := NewStore()
	initial := testState("light", TypeLight, false)
	store.Seed(initial)

	// Same logical state read at a different time must still match.
	expected := initial
	expected.UpdatedAt = initial.UpdatedAt.Add(-time.Minute)

	next := initial
	next.Status = true
	next.LastCommand = ActionOn

	if !store.CompareAndSet("light", expected, next) {
		t.Error("CompareAndSet() compared UpdatedAt; timestamps must be excluded")
	}
}

// =============================================================================
// Race Tests
// =============================================================================

func TestStore_ConcurrentCompareAndSet_OneWinner(t *testing.T) {
	store := NewStore()
	initial := testState("window", TypeWindow, false)
	store.Seed(initial)

	const writers = 20
	var wg sync.WaitGroup
	wins := make(chan int, writers)

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			next := initial
			next.Status = true
			next.LastCommand = ActionOpen
			next.UpdatedAt = time.Now().UTC().Add(time.Duration(n) * time.Nanosecond)
			if store.CompareAndSet("window", initial, next) {
				wins <- n
			}
		}(w)
	}
	wg.Wait()
	close(wins)

	winners := 0
	for range wins {
		winners++
	}
	if winners != 1 {
		t.Errorf("concurrent CompareAndSet winners = %d, want exactly 1", winners)
	}

	final, _ := store.Get("window")
	if !final.Status || final.LastCommand != ActionOpen {
		t.Errorf("final state = %+v, want open", final)
	}
}
