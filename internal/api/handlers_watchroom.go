// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/tomtom215/reelsync/internal/models"
	"github.com/tomtom215/reelsync/internal/validation"
)

type chatHistoryResponse struct {
	RoomCode string               `json:"roomCode"`
	Limit    int                  `json:"limit"`
	Messages []models.ChatMessage `json:"messages"`
}

// SearchUsers lists invite candidates matching q, never including the
// caller. Queries under two characters return an empty list.
func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.rooms.SearchInviteCandidates(r.Context(), identity(r), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteSuccess(w, r, map[string]interface{}{"users": users})
}

// CreateRoom opens a room hosted by the caller.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	if err := validation.ValidateStruct(&req); err != nil {
		h.fail(w, r, err)
		return
	}
	room, err := h.rooms.CreateRoom(r.Context(), identity(r), req.Title)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(room)
}

// GetRoom returns a room with its participants and playback state.
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	code, ok := roomCodeParam(r)
	if !ok {
		NewResponseWriter(w, r).BadRequest("Invalid room code")
		return
	}
	room, err := h.rooms.GetRoom(r.Context(), code)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteSuccess(w, r, room)
}

// JoinRoom adds the caller to a room, leaving any other open room first.
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	code, ok := roomCodeParam(r)
	if !ok {
		NewResponseWriter(w, r).BadRequest("Invalid room code")
		return
	}
	room, err := h.rooms.JoinRoom(r.Context(), code, identity(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteSuccess(w, r, room)
}

// LeaveRoom removes the caller from a room.
func (h *Handler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	code, ok := roomCodeParam(r)
	if !ok {
		NewResponseWriter(w, r).BadRequest("Invalid room code")
		return
	}
	if err := h.rooms.LeaveRoom(r.Context(), code, identity(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	WriteSuccess(w, r, map[string]string{"message": "Left room", "roomCode": code})
}

// UpdatePlayback replaces the room's shared playback state.
func (h *Handler) UpdatePlayback(w http.ResponseWriter, r *http.Request) {
	code, ok := roomCodeParam(r)
	if !ok {
		NewResponseWriter(w, r).BadRequest("Invalid room code")
		return
	}
	var update models.PlaybackUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		h.fail(w, r, err)
		return
	}
	state, err := h.rooms.UpdatePlayback(r.Context(), code, identity(r), update)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteSuccess(w, r, state)
}

// InviteUser sends a room invite notification to another user.
func (h *Handler) InviteUser(w http.ResponseWriter, r *http.Request) {
	code, ok := roomCodeParam(r)
	if !ok {
		NewResponseWriter(w, r).BadRequest("Invalid room code")
		return
	}
	var req inviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		h.fail(w, r, err)
		return
	}
	n, err := h.rooms.InviteUser(r.Context(), code, identity(r), req.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(n)
}

// ChatHistory returns the newest messages of a room, oldest first.
// limit defaults to 50 and is capped at 200.
func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	q := r.URL.Query()

	code := models.NormalizeRoomCode(q.Get("roomCode"))
	if code == "" {
		rw.BadRequest("roomCode is required")
		return
	}
	if !models.ValidRoomCode(code) {
		rw.BadRequest("Invalid room code")
		return
	}

	// Zero and negative limits fall back to the default; only
	// non-numeric values are rejected.
	limit := 0
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			rw.BadRequest("limit must be an integer")
			return
		}
		limit = n
	}
	limit = h.rooms.HistoryLimit(limit)

	if err := h.rooms.RequireParticipant(r.Context(), code, subject(r).ID); err != nil {
		h.fail(w, r, err)
		return
	}
	messages, err := h.rooms.ChatHistory(r.Context(), code, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	rw.Success(chatHistoryResponse{RoomCode: code, Limit: limit, Messages: messages})
}

// PostChat appends a message to a room's chat.
func (h *Handler) PostChat(w http.ResponseWriter, r *http.Request) {
	var req postChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	req.RoomCode = models.NormalizeRoomCode(req.RoomCode)
	if err := validation.ValidateStruct(&req); err != nil {
		h.fail(w, r, err)
		return
	}
	msg, err := h.rooms.PostMessage(r.Context(), req.RoomCode, identity(r), req.Body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(msg)
}
