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

	"github.com/tomtom215/reelsync/internal/models"
)

const roomColumns = `code, title, host_id, created_at, closed_at, last_seq,
	playback_media_id, playback_media_type, playback_position, playback_paused,
	playback_updated_by, playback_updated_at`

// CreateRoom inserts room and its host participant atomically.
// A code collision returns ErrRoomCodeTaken so the caller can retry.
func (db *DB) CreateRoom(ctx context.Context, room *models.Room, hostName string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var exists bool
	if err := db.conn.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM rooms WHERE code = ?)", room.Code).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check room code: %w", err)
	}
	if exists {
		return ErrRoomCodeTaken
	}

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO rooms (code, title, host_id, created_at, last_seq, playback_paused)
			VALUES (?, ?, ?, ?, 0, TRUE)`,
			room.Code, room.Title, room.HostID, room.CreatedAt); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO room_participants (room_code, user_id, role, joined_at)
			VALUES (?, ?, ?, ?)`,
			room.Code, room.HostID, string(models.ParticipantHost), room.CreatedAt)
		return err
	})
	if err != nil {
		if isConstraintViolation(err) {
			return ErrRoomCodeTaken
		}
		return fmt.Errorf("failed to create room: %w", err)
	}

	room.Participants = []models.Participant{{
		RoomCode: room.Code,
		UserID:   room.HostID,
		Name:     hostName,
		Role:     models.ParticipantHost,
		JoinedAt: room.CreatedAt,
	}}
	room.Playback = models.PlaybackState{Paused: true}
	return nil
}

// GetRoom loads a room and its participants ordered by join time.
func (db *DB) GetRoom(ctx context.Context, code string) (*models.Room, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	room, err := scanRoom(db.conn.QueryRowContext(ctx,
		"SELECT "+roomColumns+" FROM rooms WHERE code = ?", code))
	if err != nil {
		return nil, err
	}

	participants, err := db.listParticipants(ctx, code)
	if err != nil {
		return nil, err
	}
	room.Participants = participants
	return room, nil
}

func (db *DB) listParticipants(ctx context.Context, code string) ([]models.Participant, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT p.room_code, p.user_id, COALESCE(u.name, ''), p.role, p.joined_at
		FROM room_participants p
		LEFT JOIN users u ON u.id = p.user_id
		WHERE p.room_code = ?
		ORDER BY p.joined_at, p.user_id`, code)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer closeQuietly(rows)

	participants := make([]models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		var role string
		if err := rows.Scan(&p.RoomCode, &p.UserID, &p.Name, &role, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		p.Role = models.ParticipantRole(role)
		p.JoinedAt = p.JoinedAt.UTC()
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}
	return participants, nil
}

// AddParticipant adds userID to an open room. Rejoining is a no-op and
// reports added=false.
func (db *DB) AddParticipant(ctx context.Context, code, userID string, role models.ParticipantRole, at time.Time) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if err := db.requireOpenRoom(ctx, code); err != nil {
		return false, err
	}

	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO room_participants (room_code, user_id, role, joined_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (room_code, user_id) DO NOTHING`,
		code, userID, string(role), at)
	if err != nil {
		return false, fmt.Errorf("failed to add participant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// RemoveParticipant reports whether userID was in the room.
func (db *DB) RemoveParticipant(ctx context.Context, code, userID string) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		"DELETE FROM room_participants WHERE room_code = ? AND user_id = ?", code, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove participant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// TransferHost makes newHostID the host and demotes everyone else to guest.
func (db *DB) TransferHost(ctx context.Context, code, newHostID string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE rooms SET host_id = ? WHERE code = ?", newHostID, code)
		if err != nil {
			return fmt.Errorf("failed to update host: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrRoomNotFound
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE room_participants
			SET role = CASE WHEN user_id = ? THEN ? ELSE ? END
			WHERE room_code = ?`,
			newHostID, string(models.ParticipantHost), string(models.ParticipantGuest), code); err != nil {
			return fmt.Errorf("failed to update participant roles: %w", err)
		}
		return nil
	})
}

// OpenRoomCodesForUser lists the open rooms userID currently participates in.
func (db *DB) OpenRoomCodesForUser(ctx context.Context, userID string) ([]string, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT r.code FROM rooms r
		JOIN room_participants p ON p.room_code = r.code
		WHERE p.user_id = ? AND r.closed_at IS NULL
		ORDER BY r.code`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms for user: %w", err)
	}
	defer closeQuietly(rows)

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan room code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// UpdatePlayback replaces the stored playback state. Last write wins.
func (db *DB) UpdatePlayback(ctx context.Context, code string, state models.PlaybackState) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE rooms SET
			playback_media_id = ?, playback_media_type = ?, playback_position = ?,
			playback_paused = ?, playback_updated_by = ?, playback_updated_at = ?
		WHERE code = ? AND closed_at IS NULL`,
		state.MediaID, string(state.MediaType), state.Position,
		state.Paused, state.UpdatedBy, state.UpdatedAt, code)
	if err != nil {
		return fmt.Errorf("failed to update playback: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return db.requireOpenRoom(ctx, code)
	}
	return nil
}

// CloseRoom marks the room closed and removes its participants.
// Closing an already closed room returns ErrRoomClosed.
func (db *DB) CloseRoom(ctx context.Context, code string, at time.Time) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if err := db.requireOpenRoom(ctx, code); err != nil {
		return err
	}
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE rooms SET closed_at = ? WHERE code = ? AND closed_at IS NULL", at, code); err != nil {
			return fmt.Errorf("failed to close room: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM room_participants WHERE room_code = ?", code); err != nil {
			return fmt.Errorf("failed to clear participants: %w", err)
		}
		return nil
	})
}

// requireOpenRoom returns ErrRoomNotFound or ErrRoomClosed, or nil when the
// room is open.
func (db *DB) requireOpenRoom(ctx context.Context, code string) error {
	var closedAt sql.NullTime
	err := db.conn.QueryRowContext(ctx, "SELECT closed_at FROM rooms WHERE code = ?", code).Scan(&closedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRoomNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up room: %w", err)
	}
	if closedAt.Valid {
		return ErrRoomClosed
	}
	return nil
}

func scanRoom(row *sql.Row) (*models.Room, error) {
	var (
		r         models.Room
		closedAt  sql.NullTime
		mediaType string
		updatedAt sql.NullTime
	)
	err := row.Scan(&r.Code, &r.Title, &r.HostID, &r.CreatedAt, &closedAt, &r.LastSeq,
		&r.Playback.MediaID, &mediaType, &r.Playback.Position, &r.Playback.Paused,
		&r.Playback.UpdatedBy, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan room: %w", err)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	if closedAt.Valid {
		t := closedAt.Time.UTC()
		r.ClosedAt = &t
	}
	r.Playback.MediaType = models.MediaType(mediaType)
	if updatedAt.Valid {
		r.Playback.UpdatedAt = updatedAt.Time.UTC()
	}
	return &r, nil
}
