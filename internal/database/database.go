// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

// Package database is the DuckDB persistence layer for users, watch rooms,
// chat history, watchlists and notifications.
//
// Every exported method takes a context; calls without a deadline get the
// default 30 second timeout from ensureContext. Lookups that miss return the
// package's sentinel errors (ErrUserNotFound, ErrRoomNotFound, ...) so callers
// can branch with errors.Is.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/models"
)

const defaultQueryTimeout = 30 * time.Second

// DB wraps the DuckDB connection pool.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens (or creates) the database at cfg.Path and applies pending migrations.
// Use ":memory:" for tests.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "1GB"
	}

	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	connStr := fmt.Sprintf("%s?threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, threads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(runtime.NumCPU())
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	db := &DB{conn: conn, cfg: cfg}
	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

func (db *DB) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()

	if err := db.runMigrations(ctx); err != nil {
		return err
	}
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint after schema initialization")
	}
	return nil
}

// Close checkpoints the WAL and closes the pool.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}
	cancel()
	return db.conn.Close()
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Checkpoint flushes the WAL into the database file.
func (db *DB) Checkpoint(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// Stats returns the row counts shown on the admin settings page.
func (db *DB) Stats(ctx context.Context) (models.DatabaseStats, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var s models.DatabaseStats
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM rooms),
			(SELECT COUNT(*) FROM rooms WHERE closed_at IS NULL),
			(SELECT COUNT(*) FROM chat_messages),
			(SELECT COUNT(*) FROM notifications)
	`).Scan(&s.Users, &s.Rooms, &s.OpenRooms, &s.ChatMessages, &s.Notifications)
	if err != nil {
		return s, fmt.Errorf("failed to query database stats: %w", err)
	}
	return s, nil
}

// ensureContext applies the default timeout when ctx has no deadline.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		return context.WithTimeout(ctx, defaultQueryTimeout)
	}
	return ctx, func() {}
}

// withTx runs fn in a transaction, rolling back on error.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logging.Warn().Err(rbErr).Msg("Transaction rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// closeQuietly is for error paths where a Close error is not actionable.
func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

// Conn exposes the pool to packages that own their own tables.
func (db *DB) Conn() *sql.DB {
	return db.conn
}
