// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package api

import (
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/reelsync/internal/audit"
	"github.com/tomtom215/reelsync/internal/middleware"
	"github.com/tomtom215/reelsync/internal/models"
	"github.com/tomtom215/reelsync/internal/tmdb"
)

// maxEndpointStats bounds the endpoint table on the settings page.
const maxEndpointStats = 10

type systemResponse struct {
	models.SystemInfo
	TMDB      tmdb.Status                `json:"tmdb"`
	Endpoints []middleware.EndpointStats `json:"endpoints"`
}

// AdminDeleteNotification validates the id and reports that deletion is
// not available yet. Nothing is changed.
func (h *Handler) AdminDeleteNotification(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		rw.BadRequest("Invalid notification id")
		return
	}
	h.audit.LogAdminAction(r.Context(), actor(r), audit.SourceFromRequest(r), "delete_notification",
		"Notification deletion requested", map[string]interface{}{"notificationId": id})
	rw.NotImplemented("Deleting notifications is not implemented")
}

// AdminUnreadCount returns how many notifications the admin has not read.
func (h *Handler) AdminUnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.db.UnreadNotificationCount(r.Context(), subject(r).ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteSuccess(w, r, map[string]int64{"count": n})
}

// AdminDeleteRoom validates the room code and reports that deletion is not
// available yet. Nothing is changed.
func (h *Handler) AdminDeleteRoom(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	code, ok := roomCodeParam(r)
	if !ok {
		rw.BadRequest("Invalid room code")
		return
	}
	h.audit.LogAdminAction(r.Context(), actor(r), audit.SourceFromRequest(r), "delete_room",
		"Room deletion requested", map[string]interface{}{"roomCode": code})
	rw.NotImplemented("Deleting rooms is not implemented")
}

// AdminSystemSettings reports version, uptime, storage and runtime state.
func (h *Handler) AdminSystemSettings(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	info := models.SystemInfo{
		AppName:          "reelsync",
		Version:          h.version,
		GoVersion:        runtime.Version(),
		Environment:      h.cfg.Server.Environment,
		StartedAt:        h.startTime.UTC(),
		UptimeSeconds:    int64(time.Since(h.startTime) / time.Second),
		Database:         stats,
		TMDBConfigured:   h.tmdb != nil && h.tmdb.Configured(),
		TelemetryEnabled: h.reporter.Enabled(),
		SessionStore:     h.cfg.Security.SessionStore,
		EventTransport:   h.eventTransport,
	}
	if h.hub != nil {
		info.WebSocketClients = h.hub.ClientCount()
	}

	resp := systemResponse{SystemInfo: info, Endpoints: []middleware.EndpointStats{}}
	if h.tmdb != nil {
		resp.TMDB = h.tmdb.Status()
	}
	if h.perf != nil {
		endpoints := h.perf.Stats()
		if len(endpoints) > maxEndpointStats {
			endpoints = endpoints[:maxEndpointStats]
		}
		resp.Endpoints = endpoints
	}
	WriteSuccess(w, r, resp)
}

// AdminAuditEvents lists recorded audit events, newest first. Optional
// filters: type (comma list), actorId, outcome, limit.
func (h *Handler) AdminAuditEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.QueryFilter{
		ActorID: strings.TrimSpace(q.Get("actorId")),
		Outcome: audit.Outcome(strings.TrimSpace(q.Get("outcome"))),
	}
	for _, t := range strings.Split(q.Get("type"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			filter.Types = append(filter.Types, audit.EventType(t))
		}
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			NewResponseWriter(w, r).BadRequest("limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	events, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteSuccess(w, r, map[string]interface{}{"events": events})
}
