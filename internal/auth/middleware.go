// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/models"
)

const (
	// SessionCookieName is the login cookie.
	SessionCookieName = "reelsync_session"

	// SessionHeaderName lets non-browser clients pass the session token.
	SessionHeaderName = "X-Session-Token"
)

// Manager issues sessions and resolves request identity.
type Manager struct {
	store        SessionStore
	jwt          *JWTManager
	ttl          time.Duration
	cookieSecure bool
}

// NewManager wires a session store and an optional JWT manager.
func NewManager(store SessionStore, jwtManager *JWTManager, cfg *config.SecurityConfig) *Manager {
	return &Manager{
		store:        store,
		jwt:          jwtManager,
		ttl:          cfg.SessionTimeout,
		cookieSecure: cfg.CookieSecure,
	}
}

// Store returns the session store.
func (m *Manager) Store() SessionStore {
	return m.store
}

// Identity resolves the caller and stores an AuthSubject in the request
// context. Requests with missing or invalid credentials pass through
// anonymously.
func (m *Manager) Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := m.resolve(r)
		if subject == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := ContextWithAuthSubject(r.Context(), subject)
		ctx = logging.ContextWithUserID(ctx, subject.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Manager) resolve(r *http.Request) *AuthSubject {
	if token := bearerToken(r); token != "" && m.jwt != nil {
		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Rejected bearer token")
			return nil
		}
		role, err := models.ParseRole(claims.Role)
		if err != nil {
			return nil
		}
		return &AuthSubject{
			ID:       claims.UserID,
			Email:    claims.Email,
			Name:     claims.Name,
			Role:     role,
			Provider: ProviderJWT,
		}
	}

	id := sessionIDFromRequest(r)
	if id == "" {
		return nil
	}
	session, err := m.store.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
			logging.Ctx(r.Context()).Error().Err(err).Msg("Session lookup error")
		}
		return nil
	}
	return session.ToAuthSubject()
}

// Login creates a session for u, sets the cookie and returns a bearer token
// when JWT is configured.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, u *models.User) (*Session, string, error) {
	session := NewSession(SubjectFromUser(u, ProviderSession), m.ttl)
	if err := m.store.Create(ctx, session); err != nil {
		return nil, "", err
	}
	m.setCookie(w, session.ID, session.ExpiresAt)

	var token string
	if m.jwt != nil {
		var err error
		if token, err = m.jwt.GenerateToken(u); err != nil {
			return nil, "", err
		}
	}
	return session, token, nil
}

// Logout deletes the caller's session (if any) and clears the cookie.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	m.clearCookie(w)
	if id := sessionIDFromRequest(r); id != "" {
		return m.store.Delete(ctx, id)
	}
	return nil
}

func (m *Manager) setCookie(w http.ResponseWriter, id string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func sessionIDFromRequest(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get(SessionHeaderName)); h != "" {
		return h
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
