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
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/reelsync/internal/models"
)

// MaxSearchResults caps SearchUsers.
const MaxSearchResults = 20

const userColumns = "id, email, name, password_hash, role, created_at"

// CreateUser inserts a user with a fresh id. The email is stored lowercased;
// a second registration with the same email returns ErrEmailTaken.
func (db *DB) CreateUser(ctx context.Context, nu models.NewUser) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	role := nu.Role
	if role == "" {
		role = models.RoleUser
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(nu.Email),
		Name:         strings.TrimSpace(nu.Name),
		PasswordHash: nu.PasswordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (email) DO NOTHING`,
		u.ID, u.Email, u.Name, u.PasswordHash, string(u.Role), u.CreatedAt)
	if err != nil {
		if isConstraintViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrEmailTaken
	}
	return u, nil
}

// GetUserByID returns ErrUserNotFound when id is unknown.
func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// GetUserByEmail matches case-insensitively.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", normalizeEmail(email))
	return scanUser(row)
}

// SearchUsers returns up to MaxSearchResults users whose name or email
// contains query (case-insensitive), excluding excludeID, ordered by name.
// The caller enforces the minimum query length.
func (db *DB) SearchUsers(ctx context.Context, query, excludeID string) ([]models.UserSummary, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, name, email FROM users
		WHERE id <> ?
		  AND (name ILIKE ? ESCAPE '\' OR email ILIKE ? ESCAPE '\')
		ORDER BY lower(name), id
		LIMIT ?`,
		excludeID, pattern, pattern, MaxSearchResults)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer closeQuietly(rows)

	results := make([]models.UserSummary, 0)
	for rows.Next() {
		var s models.UserSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Email); err != nil {
			return nil, fmt.Errorf("failed to scan user summary: %w", err)
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return results, nil
}

// UpdateUserRole changes a user's role.
func (db *DB) UpdateUserRole(ctx context.Context, id string, role models.Role) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, "UPDATE users SET role = ? WHERE id = ?", string(role), id)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	parsed, err := models.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", u.ID, err)
	}
	u.Role = parsed
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
