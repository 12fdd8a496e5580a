// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/reelsync/internal/models"
)

var (
	// ErrSessionNotFound is returned when a session is not in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when the session exists but has expired.
	ErrSessionExpired = errors.New("session expired")
)

// Session is a server-side login.
type Session struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// IsExpired reports whether the session is past ExpiresAt.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// ToAuthSubject converts the session to a request identity.
func (s *Session) ToAuthSubject() *AuthSubject {
	return &AuthSubject{
		ID:        s.UserID,
		Email:     s.Email,
		Name:      s.Name,
		Role:      s.Role,
		Provider:  ProviderSession,
		SessionID: s.ID,
	}
}

// NewSession creates a session for subject lasting ttl.
func NewSession(subject *AuthSubject, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        generateSessionID(),
		UserID:    subject.ID,
		Email:     subject.Email,
		Name:      subject.Name,
		Role:      subject.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func generateSessionID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand does not fail on supported platforms.
		panic("auth: crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// SessionStore persists sessions.
type SessionStore interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// Get returns ErrSessionNotFound or ErrSessionExpired on a miss.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete is a no-op for unknown ids.
	Delete(ctx context.Context, id string) error

	// DeleteByUserID removes every session of a user.
	DeleteByUserID(ctx context.Context, userID string) (int, error)

	// CleanupExpired removes expired sessions and returns how many.
	CleanupExpired(ctx context.Context) (int, error)

	// Close releases the backend.
	Close() error
}

// MemorySessionStore is a SessionStore for development and tests.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemorySessionStore creates an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]Session)}
}

// Create stores a copy of session.
func (s *MemorySessionStore) Create(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

// Get returns a copy of the stored session.
func (s *MemorySessionStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.IsExpired() {
		return nil, ErrSessionExpired
	}
	return &session, nil
}

// Delete removes id.
func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// DeleteByUserID removes every session owned by userID.
func (s *MemorySessionStore) DeleteByUserID(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, id)
			count++
		}
	}
	return count, nil
}

// CleanupExpired drops expired sessions.
func (s *MemorySessionStore) CleanupExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, session := range s.sessions {
		if session.IsExpired() {
			delete(s.sessions, id)
			count++
		}
	}
	return count, nil
}

// Close is a no-op.
func (s *MemorySessionStore) Close() error { return nil }

// Count returns the number of stored sessions, expired or not.
func (s *MemorySessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
