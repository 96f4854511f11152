package storage

import (
	"database/sql"
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
			-- Alert rules table
			CREATE TABLE IF NOT EXISTS rules (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				category TEXT NOT NULL,
				metric TEXT NOT NULL,
				service_id TEXT,
				operator TEXT NOT NULL,
				threshold REAL NOT NULL,
				duration INTEGER NOT NULL,
				severity TEXT NOT NULL,
				cooldown_sec INTEGER NOT NULL,
				channel_ids_json TEXT NOT NULL,
				schedule TEXT,
				enabled INTEGER NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Notification channels table
			CREATE TABLE IF NOT EXISTS channels (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				type TEXT NOT NULL,
				settings_json TEXT NOT NULL,
				enabled INTEGER NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Monitored services table
			CREATE TABLE IF NOT EXISTS services (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				url TEXT NOT NULL,
				expected_status INTEGER NOT NULL DEFAULT 200,
				timeout_sec INTEGER NOT NULL DEFAULT 0,
				status TEXT NOT NULL DEFAULT 'unknown',
				last_checked_at DATETIME,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Notification feed table
			CREATE TABLE IF NOT EXISTS notifications (
				id TEXT PRIMARY KEY,
				rule_id TEXT NOT NULL,
				rule_name TEXT NOT NULL,
				severity TEXT NOT NULL,
				message TEXT NOT NULL,
				value REAL NOT NULL,
				notified_at DATETIME NOT NULL,
				created_at DATETIME NOT NULL
			);

			-- Ordered read marks table
			CREATE TABLE IF NOT EXISTS read_marks (
				position INTEGER PRIMARY KEY,
				notification_id TEXT UNIQUE NOT NULL
			);

			-- Indexes
			CREATE INDEX IF NOT EXISTS idx_rules_enabled ON rules(enabled);
			CREATE INDEX IF NOT EXISTS idx_rules_category ON rules(category);
			CREATE INDEX IF NOT EXISTS idx_notifications_rule ON notifications(rule_id);
			CREATE INDEX IF NOT EXISTS idx_notifications_notified_at ON notifications(notified_at);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		_, err = tx.Exec(m.Up)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d (%s): %w", m.Version, m.Name, err)
		}

		_, err = tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
