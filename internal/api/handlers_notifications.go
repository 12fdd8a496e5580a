// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/reelsync/internal/models"
)

const notificationListLimit = 50

// ListNotifications returns the caller's newest notifications.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := subject(r).ID
	items, err := h.db.ListNotifications(r.Context(), userID, notificationListLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	unread, err := h.db.UnreadNotificationCount(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []models.Notification{}
	}
	WriteSuccess(w, r, map[string]interface{}{"notifications": items, "unread": unread})
}

// MarkNotificationRead marks one of the caller's notifications read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		NewResponseWriter(w, r).BadRequest("Invalid notification id")
		return
	}
	if err := h.db.MarkNotificationRead(r.Context(), subject(r).ID, id); err != nil {
		h.fail(w, r, err)
		return
	}
	WriteSuccess(w, r, map[string]string{"message": "Notification marked as read"})
}
