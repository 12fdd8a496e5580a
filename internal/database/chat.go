// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/models"
)

const maxConflictRetries = 3

// AppendChatMessage assigns the room's next seq to msg and stores it.
// The seq counter and the insert share one transaction, so seqs are gap-free
// per room. msg.Seq is set on success.
func (db *DB) AppendChatMessage(ctx context.Context, msg *models.ChatMessage) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var err error
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		err = db.appendChatMessageOnce(ctx, msg)
		if !isTransactionConflict(err) {
			return err
		}
		logging.Debug().Str("room", msg.RoomCode).Int("attempt", attempt).Msg("Chat append conflict, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}
	return fmt.Errorf("failed to append chat message after %d attempts: %w", maxConflictRetries, err)
}

func (db *DB) appendChatMessageOnce(ctx context.Context, msg *models.ChatMessage) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var seq int64
		err := tx.QueryRowContext(ctx, `
			UPDATE rooms SET last_seq = last_seq + 1
			WHERE code = ? AND closed_at IS NULL
			RETURNING last_seq`, msg.RoomCode).Scan(&seq)
		if errors.Is(err, sql.ErrNoRows) {
			return db.requireOpenRoom(ctx, msg.RoomCode)
		}
		if err != nil {
			return fmt.Errorf("failed to allocate chat seq: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_messages (room_code, seq, sender_id, body, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			msg.RoomCode, seq, msg.SenderID, msg.Body, msg.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert chat message: %w", err)
		}
		msg.Seq = seq
		return nil
	})
}

// ChatHistory returns the newest limit messages of a room in ascending seq
// order. An unknown room returns ErrRoomNotFound. Closing a room keeps its
// messages, but the HTTP layer only serves history to participants of an
// open room.
func (db *DB) ChatHistory(ctx context.Context, code string, limit int) ([]models.ChatMessage, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if err := db.requireOpenRoom(ctx, code); err != nil && !errors.Is(err, ErrRoomClosed) {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT room_code, seq, sender_id, sender_name, body, created_at FROM (
			SELECT m.room_code, m.seq, m.sender_id, COALESCE(u.name, '') AS sender_name,
			       m.body, m.created_at
			FROM chat_messages m
			LEFT JOIN users u ON u.id = m.sender_id
			WHERE m.room_code = ?
			ORDER BY m.seq DESC
			LIMIT ?
		) ORDER BY seq ASC`, code, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer closeQuietly(rows)

	messages := make([]models.ChatMessage, 0, limit)
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.RoomCode, &m.Seq, &m.SenderID, &m.SenderName, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		m.CreatedAt = m.CreatedAt.UTC()
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat messages: %w", err)
	}
	return messages, nil
}
