package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
)

// Migration represents a single schema change.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema: tasks, agent_state, activity_log",
		SQL:         migration001SQL,
	},
	{
		Version:     2,
		Description: "add labels column to tasks",
		SQL:         migration002SQL,
	},
}

const migration001SQL = `
CREATE TABLE tasks (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    "column"    TEXT NOT NULL DEFAULT 'backlog',
    priority    TEXT NOT NULL DEFAULT '',
    assignee    TEXT NOT NULL DEFAULT '',
    due_date    DATETIME,
    created_at  DATETIME NOT NULL,
    updated_at  DATETIME NOT NULL
);

CREATE TABLE agent_state (
    agent_id                TEXT PRIMARY KEY,
    status                  TEXT NOT NULL DEFAULT 'idle',
    current_model           TEXT NOT NULL DEFAULT '',
    auto_pickup_enabled     INTEGER NOT NULL DEFAULT 1,
    max_concurrent_tasks    INTEGER NOT NULL DEFAULT 1,
    due_date_urgency_hours  INTEGER NOT NULL DEFAULT 24,
    nightly_start_hour      INTEGER NOT NULL DEFAULT 22,
    repick_window_minutes   INTEGER NOT NULL DEFAULT 30,
    updated_at              DATETIME NOT NULL
);

CREATE TABLE activity_log (
    id          TEXT PRIMARY KEY,
    actor       TEXT NOT NULL,
    action      TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    entity_id   TEXT NOT NULL,
    changes     TEXT NOT NULL DEFAULT '{}',
    metadata    TEXT NOT NULL DEFAULT '{}',
    created_at  DATETIME NOT NULL
);

CREATE INDEX idx_tasks_column ON tasks("column");
CREATE INDEX idx_tasks_assignee ON tasks(assignee);
CREATE INDEX idx_activity_entity ON activity_log(entity_type, entity_id, created_at DESC);
CREATE INDEX idx_activity_time ON activity_log(created_at DESC);
`

const migration002SQL = `
ALTER TABLE tasks ADD COLUMN labels TEXT NOT NULL DEFAULT '[]';
`

// Migrate runs all pending migrations inside transactions.
func Migrate(db *sql.DB) error {
	if db == nil {
		return errors.New("db is nil")
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY, applied_at DATETIME)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	currentVersion, err := CurrentVersion(db)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", migration.Version, err)
		}

		if _, err := tx.Exec(migration.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", migration.Version, err)
		}

		if _, err := tx.Exec(`INSERT INTO schema_version (version, applied_at) VALUES (?, CURRENT_TIMESTAMP)`, migration.Version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", migration.Version, err)
		}

		log.Printf("db: applied migration %d: %s", migration.Version, migration.Description)
		currentVersion = migration.Version
	}

	return nil
}

// CurrentVersion returns the current schema version (0 if no migrations applied).
func CurrentVersion(db *sql.DB) (int, error) {
	if db == nil {
		return 0, errors.New("db is nil")
	}

	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	var version int
	if err := row.Scan(&version); err != nil {
		return 0, fmt.Errorf("query schema_version: %w", err)
	}
	return version, nil
}
