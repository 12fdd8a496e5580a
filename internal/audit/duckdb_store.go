// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/reelsync/internal/logging"
)

const (
	defaultQueryLimit = 100
	maxQueryLimit     = 1000
)

// DuckDBStore keeps events in the audit_events table of the main database.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore wraps db. Call CreateTable once before use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// CreateTable creates the table and its indexes if they do not exist.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS audit_events (
			id TEXT PRIMARY KEY,
			timestamp TIMESTAMP NOT NULL,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			outcome TEXT NOT NULL,
			actor_id TEXT NOT NULL DEFAULT '',
			actor_email TEXT NOT NULL DEFAULT '',
			actor_role TEXT NOT NULL DEFAULT '',
			source_ip TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			metadata TEXT,
			request_id TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events (timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_events (actor_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute audit schema statement: %w", err)
		}
	}
	logging.Info().Msg("Audit events table created/verified")
	return nil
}

// Save inserts event.
func (s *DuckDBStore) Save(ctx context.Context, event *Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	var metadata *string
	if len(event.Metadata) > 0 {
		m := string(event.Metadata)
		metadata = &m
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, timestamp, type, severity, outcome, actor_id, actor_email, actor_role,
			source_ip, user_agent, action, description, metadata, request_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Timestamp.UTC(), string(event.Type), string(event.Severity), string(event.Outcome),
		event.Actor.ID, event.Actor.Email, event.Actor.Role,
		event.Source.IP, event.Source.UserAgent, event.Action, event.Description, metadata, event.RequestID)
	if err != nil {
		return fmt.Errorf("failed to save audit event: %w", err)
	}
	return nil
}

// Query returns matching events, newest first.
func (s *DuckDBStore) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	conditions, args := buildFilterConditions(filter)
	query := `SELECT id, timestamp, type, severity, outcome, actor_id, actor_email, actor_role,
		source_ip, user_agent, action, description, metadata, request_id FROM audit_events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC, id LIMIT ?"
	args = append(args, clampLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]Event, 0)
	for rows.Next() {
		var (
			ev                     Event
			typ, severity, outcome string
			metadata               sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &typ, &severity, &outcome,
			&ev.Actor.ID, &ev.Actor.Email, &ev.Actor.Role,
			&ev.Source.IP, &ev.Source.UserAgent, &ev.Action, &ev.Description, &metadata, &ev.RequestID); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		ev.Timestamp = ev.Timestamp.UTC()
		ev.Type = EventType(typ)
		ev.Severity = Severity(severity)
		ev.Outcome = Outcome(outcome)
		if metadata.Valid {
			ev.Metadata = []byte(metadata.String)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}
	return out, nil
}

// DeleteBefore removes events older than cutoff.
func (s *DuckDBStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM audit_events WHERE timestamp < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit events: %w", err)
	}
	return res.RowsAffected()
}

func buildFilterConditions(filter QueryFilter) ([]string, []interface{}) {
	var conditions []string
	var args []interface{}

	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		conditions = append(conditions, "type IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.ActorID != "" {
		conditions = append(conditions, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.Since.UTC())
	}
	return conditions, args
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultQueryLimit
	case limit > maxQueryLimit:
		return maxQueryLimit
	default:
		return limit
	}
}
