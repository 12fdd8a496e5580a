// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package api

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/tomtom215/reelsync/internal/audit"
	"github.com/tomtom215/reelsync/internal/auth"
	"github.com/tomtom215/reelsync/internal/database"
	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/models"
	"github.com/tomtom215/reelsync/internal/validation"
)

// timingHash keeps failed logins for unknown emails as slow as wrong
// passwords. It is computed on first use.
var (
	timingHashOnce sync.Once
	timingHash     string
)

func equalizeLoginTiming(password string) {
	timingHashOnce.Do(func() {
		timingHash, _ = auth.HashPassword("reelsync-login-timing")
	})
	auth.CheckPassword(timingHash, password)
}

type registerResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

type loginResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token,omitempty"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// Register creates an account. Emails listed in ADMIN_EMAILS get the admin
// role.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	req.normalize()
	if err := validation.ValidateStruct(&req); err != nil {
		h.fail(w, r, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	role := models.RoleUser
	if h.cfg.Security.IsAdminEmail(req.Email) {
		role = models.RoleAdmin
	}

	user, err := h.db.CreateUser(r.Context(), models.NewUser{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("User registered")
	h.audit.LogUserCreated(r.Context(), audit.Actor{ID: user.ID, Email: user.Email, Role: string(user.Role)}, audit.SourceFromRequest(r))
	NewResponseWriter(w, r).Created(registerResponse{Message: "User registered successfully", User: user})
}

// Login checks the password, starts a session and returns a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.db.GetUserByEmail(r.Context(), req.Email)
	switch {
	case errors.Is(err, database.ErrUserNotFound):
		equalizeLoginTiming(req.Password)
		h.audit.LogAuthFailure(r.Context(), req.Email, audit.SourceFromRequest(r), "unknown email")
		NewResponseWriter(w, r).Unauthorized("Invalid email or password")
		return
	case err != nil:
		h.fail(w, r, err)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		logging.Ctx(r.Context()).Info().Str("user_id", user.ID).Msg("Login failed: wrong password")
		h.audit.LogAuthFailure(r.Context(), req.Email, audit.SourceFromRequest(r), "wrong password")
		NewResponseWriter(w, r).Unauthorized("Invalid email or password")
		return
	}

	session, token, err := h.sessions.Login(r.Context(), w, user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().Str("user_id", user.ID).Msg("User logged in")
	h.audit.LogAuthSuccess(r.Context(), audit.Actor{ID: user.ID, Email: user.Email, Role: string(user.Role)}, audit.SourceFromRequest(r))
	WriteSuccess(w, r, loginResponse{User: user, Token: token, ExpiresAt: session.ExpiresAt})
}

// Logout ends the caller's session. It succeeds for anonymous callers too.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if subject(r) != nil {
		h.audit.LogLogout(r.Context(), actor(r), audit.SourceFromRequest(r))
	}
	if err := h.sessions.Logout(r.Context(), w, r); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to delete session")
	}
	WriteSuccess(w, r, map[string]string{"message": "Logged out"})
}

// Me returns the caller's account.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.db.GetUserByID(r.Context(), subject(r).ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteSuccess(w, r, user)
}
