// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/reelsync/internal/logging"
)

// Migration is one append-only schema step. Never edit or remove a
// migration once it has shipped; add a new version instead.
type Migration struct {
	Version    int
	Name       string
	Statements []string
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at TIMESTAMP NOT NULL
)`

// Timestamps are TIMESTAMP (UTC, written by the application) rather than
// TIMESTAMPTZ so the schema does not depend on the ICU extension.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT NOT NULL UNIQUE,
				name TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS rooms (
				code TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				host_id TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL,
				closed_at TIMESTAMP,
				last_seq BIGINT NOT NULL DEFAULT 0,
				playback_media_id TEXT NOT NULL DEFAULT '',
				playback_media_type TEXT NOT NULL DEFAULT '',
				playback_position DOUBLE NOT NULL DEFAULT 0,
				playback_paused BOOLEAN NOT NULL DEFAULT TRUE,
				playback_updated_by TEXT NOT NULL DEFAULT '',
				playback_updated_at TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS room_participants (
				room_code TEXT NOT NULL,
				user_id TEXT NOT NULL,
				role TEXT NOT NULL,
				joined_at TIMESTAMP NOT NULL,
				PRIMARY KEY (room_code, user_id)
			)`,
			`CREATE TABLE IF NOT EXISTS chat_messages (
				room_code TEXT NOT NULL,
				seq BIGINT NOT NULL,
				sender_id TEXT NOT NULL,
				body TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL,
				PRIMARY KEY (room_code, seq)
			)`,
			`CREATE TABLE IF NOT EXISTS watchlist_items (
				user_id TEXT NOT NULL,
				media_id TEXT NOT NULL,
				media_type TEXT NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				poster_path TEXT NOT NULL DEFAULT '',
				added_at TIMESTAMP NOT NULL,
				PRIMARY KEY (user_id, media_id, media_type)
			)`,
			`CREATE TABLE IF NOT EXISTS notifications (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				kind TEXT NOT NULL,
				title TEXT NOT NULL,
				body TEXT NOT NULL DEFAULT '',
				link TEXT NOT NULL DEFAULT '',
				is_read BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_participants_user ON room_participants (user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, created_at)`,
		},
	},
}

// runMigrations applies every migration newer than the recorded version.
func (db *DB) runMigrations(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var current sql.NullInt64
	if err := db.conn.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if current.Valid && int64(m.Version) <= current.Int64 {
			continue
		}
		err := db.withTx(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.Statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
				}
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
				m.Version, m.Name, time.Now().UTC())
			return err
		})
		if err != nil {
			return err
		}
		logging.Info().Int("version", m.Version).Str("name", m.Name).Msg("Applied schema migration")
	}
	return nil
}

// SchemaVersion returns the highest applied migration version.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var v sql.NullInt64
	if err := db.conn.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(v.Int64), nil
}
