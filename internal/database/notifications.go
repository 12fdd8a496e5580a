// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/reelsync/internal/models"
)

// CreateNotification stores n, assigning ID and CreatedAt when empty.
func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, kind, title, body, link, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, string(n.Kind), n.Title, n.Body, n.Link, n.Read, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns up to limit notifications for userID, newest first.
func (db *DB) ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, kind, title, body, link, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer closeQuietly(rows)

	out := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		var kind string
		if err := rows.Scan(&n.ID, &n.UserID, &kind, &n.Title, &n.Body, &n.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Kind = models.NotificationKind(kind)
		n.CreatedAt = n.CreatedAt.UTC()
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return out, nil
}

// MarkNotificationRead only touches notifications owned by userID;
// anything else is ErrNotificationNotFound.
func (db *DB) MarkNotificationRead(ctx context.Context, userID, id string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		"UPDATE notifications SET is_read = TRUE WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// UnreadNotificationCount counts userID's unread notifications.
func (db *DB) UnreadNotificationCount(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int64
	if err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE user_id = ? AND NOT is_read", userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
