// Package storage handles all database operations for tokend.
package storage

import (
	"database/sql"
	"fmt"
)

// InitSchema creates all required tables and indexes.
// This is idempotent - safe to call multiple times.
func InitSchema(db *sql.DB) error {
	ddlStatements := []string{
		// tokens table: one row per issued token. Revoked rows are kept for audit.
		// Timestamps are unix nanoseconds.
		`CREATE TABLE IF NOT EXISTS tokens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			kind TEXT NOT NULL CHECK (kind IN ('operator', 'named_admin')),
			secret_hash TEXT NOT NULL UNIQUE,
			created_at INTEGER NOT NULL,
			expires_at INTEGER,
			revoked_at INTEGER,
			CHECK ((kind = 'operator') = (name = '_admin'))
		)`,

		// Names are unique among live tokens only, so a deleted name can be reused
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_tokens_live_name ON tokens(name) WHERE revoked_at IS NULL`,

		// At most one live operator token
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_tokens_live_operator ON tokens(kind) WHERE kind = 'operator' AND revoked_at IS NULL`,

		// databases table: data-plane catalog
		`CREATE TABLE IF NOT EXISTS databases (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			created_by TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
	}

	for _, stmt := range ddlStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute DDL: %w", err)
		}
	}

	return nil
}
