package automation

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupSettingsTestDB creates an in-memory SQLite database with the
// automation_settings table.
func setupSettingsTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE automation_settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			settings TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// =============================================================================
// Settings Repository Tests
// =============================================================================

func TestSQLiteSettingsRepository_SaveAndLoad(t *testing.T) {
	db := setupSettingsTestDB(t)
	repo := NewSQLiteSettingsRepository(db)
	ctx := context.Background()

	settings := testSettings()
	settings.UpdatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := repo.Save(ctx, settings); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Temperature.OpenTemp != settings.Temperature.OpenTemp {
		t.Errorf("OpenTemp = %v, want %v", loaded.Temperature.OpenTemp, settings.Temperature.OpenTemp)
	}
	if loaded.OverrideMinutes != settings.OverrideMinutes {
		t.Errorf("OverrideMinutes = %v, want %v", loaded.OverrideMinutes, settings.OverrideMinutes)
	}
	if !loaded.UpdatedAt.Equal(settings.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", loaded.UpdatedAt, settings.UpdatedAt)
	}
}

func TestSQLiteSettingsRepository_SaveReplacesSingleRow(t *testing.T) {
	db := setupSettingsTestDB(t)
	repo := NewSQLiteSettingsRepository(db)
	ctx := context.Background()

	first := testSettings()
	first.UpdatedAt = time.Now().UTC()
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	second := first
	second.Temperature.OpenTemp = 33
	second.Enabled = false
	if err := repo.Save(ctx, second); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	loaded, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Temperature.OpenTemp != 33 || loaded.Enabled {
		t.Errorf("loaded = %+v, want second save", loaded)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM automation_settings").Scan(&count); err != nil {
		t.Fatalf("count query error = %v", err)
	}
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}
}

func TestSQLiteSettingsRepository_LoadEmpty(t *testing.T) {
	db := setupSettingsTestDB(t)
	repo := NewSQLiteSettingsRepository(db)

	_, err := repo.Load(context.Background())
	if !errors.Is(err, ErrSettingsNotFound) {
		t.Fatalf("Load() error = %v, want ErrSettingsNotFound", err)
	}
}
