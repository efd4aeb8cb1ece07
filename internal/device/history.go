package device

import (
	"context"
	"time"
)

// HistoryEntry is an append-only audit record of a device command.
//
// One entry is written per consumed CommandIntent, including intents that
// lost a concurrent race (Success=false). This gives a local audit trail
// even when the time-series database is unavailable.
type HistoryEntry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// DeviceID is the unique identifier of the device.
	DeviceID string `json:"device_id"`

	// Action is the command verb that was applied (or attempted).
	Action Action `json:"action"`

	// ControlType records whether automation or a human drove the change.
	ControlType ControlMode `json:"control_type"`

	// TriggeredBy names the origin: the source sensor type for automatic
	// commands, "user" for manual ones.
	TriggeredBy string `json:"triggered_by"`

	// SensorValue is the reading that caused an automatic command, if any.
	SensorValue *float64 `json:"sensor_value,omitempty"`

	// Success records whether the command reached the device.
	Success bool `json:"success"`

	// CreatedAt is the timestamp of the command (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// HistoryRepository stores and retrieves device command history.
//
// Implementations must be thread-safe and use UTC timestamps.
type HistoryRepository interface {
	// Record appends a command audit record.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - entry: The record to persist (ID and CreatedAt are assigned by the store)
	//
	// Returns:
	//   - error: nil on success, otherwise the underlying persistence error
	Record(ctx context.Context, entry HistoryEntry) error

	// List returns recent command history for a device, ordered newest first.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - deviceID: Unique device identifier
	//   - limit: Maximum entries to return (implementation may clamp bounds)
	//
	// Returns:
	//   - []HistoryEntry: History entries ordered by created_at DESC
	//   - error: nil on success, otherwise the underlying query error
	List(ctx context.Context, deviceID string, limit int) ([]HistoryEntry, error)
}

// StateRepository persists the latest known state per device so the
// in-memory store can be rebuilt across restarts.
type StateRepository interface {
	// Upsert writes the latest state snapshot for a device.
	Upsert(ctx context.Context, state State) error

	// LoadAll returns the latest persisted state for every device.
	LoadAll(ctx context.Context) ([]State, error)
}
