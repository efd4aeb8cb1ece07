package automation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SettingsRepository persists automation settings across restarts.
//
// Implementations must be thread-safe and use UTC timestamps.
type SettingsRepository interface {
	// Save replaces the persisted settings.
	Save(ctx context.Context, settings Settings) error

	// Load returns the persisted settings.
	//
	// Returns:
	//   - Settings: The stored settings
	//   - error: ErrSettingsNotFound when nothing has been saved yet
	Load(ctx context.Context) (Settings, error)
}

// SQLiteSettingsRepository implements SettingsRepository using SQLite.
//
// Settings are one JSON document in a single-row table; there is exactly
// one live configuration, so versioning rows would add nothing.
type SQLiteSettingsRepository struct {
	db *sql.DB
}

// NewSQLiteSettingsRepository creates a new SQLite settings repository.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *SQLiteSettingsRepository: Repository instance ready for use
func NewSQLiteSettingsRepository(db *sql.DB) *SQLiteSettingsRepository {
	return &SQLiteSettingsRepository{db: db}
}

// Save replaces the persisted settings row.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - settings: The settings to persist
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteSettingsRepository) Save(ctx context.Context, settings Settings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshalling settings: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO automation_settings (id, settings, updated_at)
		 VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   settings = excluded.settings,
		   updated_at = excluded.updated_at`,
		string(payload),
		settings.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting settings: %w", err)
	}

	return nil
}

// Load returns the persisted settings.
//
// Returns:
//   - Settings: The stored settings
//   - error: ErrSettingsNotFound when no row exists, otherwise the query error
func (r *SQLiteSettingsRepository) Load(ctx context.Context) (Settings, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		"SELECT settings FROM automation_settings WHERE id = 1",
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, ErrSettingsNotFound
	}
	if err != nil {
		return Settings{}, fmt.Errorf("querying settings: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal([]byte(payload), &settings); err != nil {
		return Settings{}, fmt.Errorf("unmarshalling settings: %w", err)
	}

	return settings, nil
}
