package automation

import (
	"testing"
	"time"
)

// =============================================================================
// Override Store Tests
// =============================================================================

func TestOverrideStore_SetAndExpire(t *testing.T) {
	store := NewOverrideStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	store.Set("pump", 5*time.Minute, now)

	if !store.Active("pump", now) {
		t.Error("Active() = false immediately after Set()")
	}
	if !store.Active("pump", now.Add(4*time.Minute)) {
		t.Error("Active() = false inside the window")
	}
	if store.Active("pump", now.Add(5*time.Minute)) {
		t.Error("Active() = true at expiry")
	}
	// Lazy expiry removed the entry; earlier times no longer matter.
	if store.Active("pump", now) {
		t.Error("Active() = true after lazy removal")
	}
}

func TestOverrideStore_SetExtendsWindow(t *testing.T) {
	store := NewOverrideStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	store.Set("light", 5*time.Minute, now)
	store.Set("light", 5*time.Minute, now.Add(4*time.Minute))

	if !store.Active("light", now.Add(8*time.Minute)) {
		t.Error("second Set() did not extend the window")
	}
}

func TestOverrideStore_UnknownDevice(t *testing.T) {
	store := NewOverrideStore()
	if store.Active("ghost", time.Now()) {
		t.Error("Active() = true for device never overridden")
	}
}

func TestOverrideStore_Clear(t *testing.T) {
	store := NewOverrideStore()
	now := time.Now()

	store.Set("window", time.Hour, now)
	store.Clear("window")

	if store.Active("window", now) {
		t.Error("Active() = true after Clear()")
	}
}

func TestOverrideStore_Sweep(t *testing.T) {
	store := NewOverrideStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	store.Set("pump", 5*time.Minute, now)
	store.Set("light", 30*time.Minute, now)
	store.Set("window", 2*time.Minute, now)

	removed := store.Sweep(now.Add(10 * time.Minute))
	if removed != 2 {
		t.Errorf("Sweep() removed = %d, want 2", removed)
	}
	if !store.Active("light", now.Add(10*time.Minute)) {
		t.Error("Sweep() removed an unexpired override")
	}
}

func TestOverrideStore_ZeroDurationIgnored(t *testing.T) {
	store := NewOverrideStore()
	now := time.Now()

	store.Set("pump", 0, now)
	if store.Active("pump", now) {
		t.Error("zero-duration Set() created an override")
	}
}
