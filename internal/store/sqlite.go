package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/microwins/internal/model"
)

// Well-known preference keys.
const (
	PrefFont      = "font"
	PrefCondition = "condition"
)

// SQLiteStore holds the client's durable local state: a preferences
// key-value table and the cached sidebar task list.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// GetPreference returns the stored value for key, or "" if the key has
// never been set.
func (s *SQLiteStore) GetPreference(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(
		ctx, &value,
		"SELECT value FROM preferences WHERE key = ?", key,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading preference %q: %w", key, err)
	}
	return value, nil
}

// SetPreference stores or replaces the value for key.
func (s *SQLiteStore) SetPreference(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO preferences (key, value, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing preference %q: %w", key, err)
	}
	return nil
}

// DeletePreference removes key if present.
func (s *SQLiteStore) DeletePreference(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(
		ctx, "DELETE FROM preferences WHERE key = ?", key,
	); err != nil {
		return fmt.Errorf("deleting preference %q: %w", key, err)
	}
	return nil
}

// ReplaceSidebarTasks swaps the cached sidebar list wholesale for the
// given entries, preserving their order.
func (s *SQLiteStore) ReplaceSidebarTasks(ctx context.Context, entries []model.SidebarEntry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM sidebar_tasks"); err != nil {
		return fmt.Errorf("clearing sidebar cache: %w", err)
	}

	for i, e := range entries {
		if _, err := tx.ExecContext(
			ctx,
			"INSERT INTO sidebar_tasks (id, title, position) VALUES (?, ?, ?)",
			e.ID, e.Title, i,
		); err != nil {
			return fmt.Errorf("caching sidebar task %d: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sidebar cache: %w", err)
	}
	return nil
}

// GetSidebarTasks returns the cached sidebar list in stored order.
func (s *SQLiteStore) GetSidebarTasks(ctx context.Context) ([]model.SidebarEntry, error) {
	entries := []model.SidebarEntry{}
	err := s.db.SelectContext(
		ctx, &entries,
		"SELECT id, title FROM sidebar_tasks ORDER BY position",
	)
	if err != nil {
		return nil, fmt.Errorf("reading sidebar cache: %w", err)
	}
	return entries, nil
}

// DeleteSidebarTask removes a single cached entry by task id.
func (s *SQLiteStore) DeleteSidebarTask(ctx context.Context, taskID int64) error {
	if _, err := s.db.ExecContext(
		ctx, "DELETE FROM sidebar_tasks WHERE id = ?", taskID,
	); err != nil {
		return fmt.Errorf("removing cached sidebar task %d: %w", taskID, err)
	}
	return nil
}
