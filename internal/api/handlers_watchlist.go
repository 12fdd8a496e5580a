// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/reelsync/internal/models"
	"github.com/tomtom215/reelsync/internal/watchlist"
)

// ListWatchlist returns the caller's saved titles, newest first.
func (h *Handler) ListWatchlist(w http.ResponseWriter, r *http.Request) {
	items, err := h.watchlist.List(r.Context(), subject(r).ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []models.WatchlistItem{}
	}
	WriteSuccess(w, r, map[string]interface{}{"items": items})
}

// AddToWatchlist saves one title. Adding an existing title updates it.
func (h *Handler) AddToWatchlist(w http.ResponseWriter, r *http.Request) {
	var req watchlist.AddRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := h.watchlist.Add(r.Context(), subject(r).ID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(item)
}

// RemoveFromWatchlist deletes /api/watchlist/{mediaType}/{mediaId}.
func (h *Handler) RemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	mediaType := models.MediaType(chi.URLParam(r, "mediaType"))
	if !mediaType.Valid() {
		NewResponseWriter(w, r).BadRequest("mediaType must be movie or tv")
		return
	}
	if err := h.watchlist.Remove(r.Context(), subject(r).ID, chi.URLParam(r, "mediaId"), mediaType); err != nil {
		h.fail(w, r, err)
		return
	}
	WriteSuccess(w, r, map[string]string{"message": "Removed from watchlist"})
}

// MigrateWatchlist imports the watchlist a browser kept in local storage.
// Re-running it is harmless: existing titles are skipped.
func (h *Handler) MigrateWatchlist(w http.ResponseWriter, r *http.Request) {
	var req migrateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	items, err := req.decodeItems()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.watchlist.Migrate(r.Context(), subject(r).ID, items)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteSuccess(w, r, result)
}
