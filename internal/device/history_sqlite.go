package device

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// SQLiteHistoryRepository implements HistoryRepository using SQLite.
//
// It stores one row per consumed command intent in the device_history table.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository creates a new SQLite history repository.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *SQLiteHistoryRepository: Repository instance ready for use
func NewSQLiteHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

// Record appends a command audit record.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - entry: The record to persist
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteHistoryRepository) Record(ctx context.Context, entry HistoryEntry) error {
	if entry.DeviceID == "" {
		return fmt.Errorf("device id is required")
	}

	var sensorValue any
	if entry.SensorValue != nil {
		sensorValue = *entry.SensorValue
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO device_history (device_id, action, control_type, triggered_by, sensor_value, success)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.DeviceID,
		string(entry.Action),
		string(entry.ControlType),
		entry.TriggeredBy,
		sensorValue,
		entry.Success,
	)
	if err != nil {
		return fmt.Errorf("inserting device history: %w", err)
	}

	return nil
}

// List returns recent command history for a device, ordered newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceID: Unique device identifier
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []HistoryEntry: History entries ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (r *SQLiteHistoryRepository) List(ctx context.Context, deviceID string, limit int) ([]HistoryEntry, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device id is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, action, control_type, triggered_by, sensor_value, success, created_at
		 FROM device_history
		 WHERE device_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		deviceID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying device history: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var entry HistoryEntry
		var action, controlType, createdAt string
		var sensorValue sql.NullFloat64

		if err := rows.Scan(&entry.ID, &entry.DeviceID, &action, &controlType,
			&entry.TriggeredBy, &sensorValue, &entry.Success, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning device history: %w", err)
		}

		entry.Action = Action(action)
		entry.ControlType = ControlMode(controlType)
		if sensorValue.Valid {
			v := sensorValue.Float64
			entry.SensorValue = &v
		}

		ts, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing history timestamp: %w", err)
		}
		entry.CreatedAt = ts

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device history: %w", err)
	}

	return entries, nil
}

// SQLiteStateRepository implements StateRepository using SQLite.
//
// It keeps exactly one row per device in the device_states table,
// upserted on every state change.
type SQLiteStateRepository struct {
	db *sql.DB
}

// NewSQLiteStateRepository creates a new SQLite latest-state repository.
func NewSQLiteStateRepository(db *sql.DB) *SQLiteStateRepository {
	return &SQLiteStateRepository{db: db}
}

// Upsert writes the latest state snapshot for a device.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - state: The state to persist
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteStateRepository) Upsert(ctx context.Context, state State) error {
	if state.DeviceID == "" {
		return fmt.Errorf("device id is required")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO device_states (device_id, device_type, status, last_command, control_mode, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(device_id) DO UPDATE SET
		   device_type = excluded.device_type,
		   status = excluded.status,
		   last_command = excluded.last_command,
		   control_mode = excluded.control_mode,
		   updated_at = excluded.updated_at`,
		state.DeviceID,
		string(state.DeviceType),
		state.Status,
		string(state.LastCommand),
		string(state.ControlMode),
		state.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting device state: %w", err)
	}

	return nil
}

// LoadAll returns the latest persisted state for every device.
//
// Returns:
//   - []State: One entry per device, unordered
//   - error: nil on success, otherwise the underlying query error
func (r *SQLiteStateRepository) LoadAll(ctx context.Context) ([]State, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT device_id, device_type, status, last_command, control_mode, updated_at
		 FROM device_states`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying device states: %w", err)
	}
	defer rows.Close()

	var states []State
	for rows.Next() {
		var state State
		var deviceType, lastCommand, controlMode, updatedAt string

		if err := rows.Scan(&state.DeviceID, &deviceType, &state.Status,
			&lastCommand, &controlMode, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning device state: %w", err)
		}

		state.DeviceType = Type(deviceType)
		state.LastCommand = Action(lastCommand)
		state.ControlMode = ControlMode(controlMode)

		ts, err := time.Parse(time.RFC3339, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing state timestamp: %w", err)
		}
		state.UpdatedAt = ts

		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device states: %w", err)
	}

	return states, nil
}
