// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package api

import (
	"context"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/models"
	"github.com/tomtom215/reelsync/internal/watchroom"
	ws "github.com/tomtom215/reelsync/internal/websocket"
)

// roomFrames applies one connection's frames as its user.
type roomFrames struct {
	rooms *watchroom.Service
	code  string
	who   watchroom.Identity
}

func (f roomFrames) Chat(ctx context.Context, body string) error {
	_, err := f.rooms.PostMessage(ctx, f.code, f.who, body)
	return err
}

func (f roomFrames) Playback(ctx context.Context, update models.PlaybackUpdate) error {
	_, err := f.rooms.UpdatePlayback(ctx, f.code, f.who, update)
	return err
}

// WatchRoomSocket upgrades a participant's connection and subscribes it to
// the room's events.
func (h *Handler) WatchRoomSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		WriteError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "WebSocket service unavailable")
		return
	}
	code := models.NormalizeRoomCode(r.URL.Query().Get("roomCode"))
	if !models.ValidRoomCode(code) {
		NewResponseWriter(w, r).BadRequest("roomCode is required")
		return
	}
	who := identity(r)
	if err := h.rooms.RequireParticipant(r.Context(), code, who.UserID); err != nil {
		h.fail(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	cfg := h.cfg.WatchRoom
	limiter := rate.NewLimiter(rate.Limit(cfg.ChatRatePerSecond), cfg.ChatBurst)
	client := ws.NewClient(h.hub, conn, code, who.UserID, roomFrames{rooms: h.rooms, code: code, who: who}, limiter)
	client.SetErrorMapper(h.wsError)
	h.hub.Register(client)
	client.Start()

	logging.Ctx(r.Context()).Debug().Str("room_code", code).Uint64("client_id", client.ID()).Msg("WebSocket client connected")
}
