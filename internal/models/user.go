// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

/*
Package models holds the data types shared by the database, service and API
layers.

JSON field names are camelCase because the only client is the web front end.
*/
package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is the authorization role carried on every identity.
// Values match the subjects in internal/authz/policy.csv.
type Role string

const (
	// RoleUser is assigned at registration.
	RoleUser Role = "user"

	// RoleAdmin may use /api/admin/*.
	RoleAdmin Role = "admin"
)

// ParseRole converts a stored or claimed role string to a Role.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// String implements fmt.Stringer.
func (r Role) String() string { return string(r) }

// IsAdmin reports whether r is RoleAdmin.
func (r Role) IsAdmin() bool { return r == RoleAdmin }

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Summary returns the public projection used by invite search.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UserSummary is an invite candidate.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewUser is the input to user creation.
type NewUser struct {
	Email        string
	Name         string
	PasswordHash string
	Role         Role
}
