// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package auth

import (
	"context"

	"github.com/tomtom215/reelsync/internal/models"
)

type contextKey string

// AuthSubjectContextKey holds the *AuthSubject of an authenticated request.
const AuthSubjectContextKey contextKey = "auth_subject"

// Provider values recorded on AuthSubject.
const (
	ProviderSession = "session"
	ProviderJWT     = "jwt"
)

// AuthSubject is the authenticated caller.
type AuthSubject struct {
	ID        string
	Email     string
	Name      string
	Role      models.Role
	Provider  string
	SessionID string
}

// IsAdmin reports whether the subject carries the admin role.
func (s *AuthSubject) IsAdmin() bool {
	return s != nil && s.Role.IsAdmin()
}

// GetAuthSubject returns nil for anonymous requests.
func GetAuthSubject(ctx context.Context) *AuthSubject {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(AuthSubjectContextKey).(*AuthSubject)
	return s
}

// ContextWithAuthSubject returns ctx carrying s.
func ContextWithAuthSubject(ctx context.Context, s *AuthSubject) context.Context {
	return context.WithValue(ctx, AuthSubjectContextKey, s)
}

// SubjectFromUser builds a subject for a freshly authenticated user.
func SubjectFromUser(u *models.User, provider string) *AuthSubject {
	return &AuthSubject{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Role:     u.Role,
		Provider: provider,
	}
}
