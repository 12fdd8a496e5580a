// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package database

import (
	"errors"
	"strings"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned by CreateUser when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrRoomNotFound is returned when no room has the given code.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomCodeTaken is returned by CreateRoom on a code collision.
	ErrRoomCodeTaken = errors.New("room code already in use")

	// ErrRoomClosed is returned when writing to a closed room.
	ErrRoomClosed = errors.New("room is closed")

	// ErrNotificationNotFound is returned when the notification does not
	// exist or belongs to someone else.
	ErrNotificationNotFound = errors.New("notification not found")
)

// isConstraintViolation matches DuckDB's primary key / unique errors.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate key") ||
		strings.Contains(msg, "violates primary key constraint") ||
		strings.Contains(msg, "violates unique constraint") ||
		strings.Contains(msg, "Constraint Error")
}

// isTransactionConflict matches DuckDB's optimistic concurrency failures.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Transaction conflict") ||
		strings.Contains(msg, "Conflict on update")
}
