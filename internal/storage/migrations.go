package storage

import (
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Incident snapshots (owned by the incident system; the
			-- engine only reads them)
			CREATE TABLE IF NOT EXISTS incidents (
				id TEXT PRIMARY KEY,
				title TEXT,
				severity TEXT NOT NULL,
				status TEXT NOT NULL,
				department TEXT,
				location TEXT,
				created_at DATETIME NOT NULL,
				last_response_at DATETIME
			);

			CREATE INDEX IF NOT EXISTS idx_incidents_status
				ON incidents(status);
			CREATE INDEX IF NOT EXISTS idx_incidents_severity_status
				ON incidents(severity, status);

			-- User directory
			CREATE TABLE IF NOT EXISTS directory_users (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT,
				phone TEXT,
				push_token TEXT,
				role TEXT,
				department TEXT,
				is_management INTEGER NOT NULL DEFAULT 0,
				is_emergency_contact INTEGER NOT NULL DEFAULT 0,
				is_regulatory INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_directory_users_role
				ON directory_users(role);
			CREATE INDEX IF NOT EXISTS idx_directory_users_department
				ON directory_users(department);

			-- Escalation history (append-only)
			CREATE TABLE IF NOT EXISTS escalation_history (
				id TEXT PRIMARY KEY,
				incident_id TEXT NOT NULL,
				rule_id TEXT,
				rule_name TEXT,
				action_type TEXT NOT NULL,
				action_target TEXT,
				details TEXT,
				is_successful INTEGER NOT NULL,
				executed_by TEXT NOT NULL,
				executed_at DATETIME NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_escalation_history_incident
				ON escalation_history(incident_id, executed_at);
			CREATE INDEX IF NOT EXISTS idx_escalation_history_executed_at
				ON escalation_history(executed_at);
		`,
	},
}

// Migrate runs all pending migrations.
func (s *SQLiteStorage) Migrate() error {
	// Create migrations table
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	err = s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current migration version: %w", err)
	}

	// Apply pending migrations
	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		if err := s.applyMigration(m); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
	}

	return nil
}

// applyMigration applies a single migration in a transaction.
func (s *SQLiteStorage) applyMigration(m Migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.Up); err != nil {
		return fmt.Errorf("exec: %w", err)
	}

	if _, err := tx.Exec(
		"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
		m.Version, m.Name, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	return tx.Commit()
}
