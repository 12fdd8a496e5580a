// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/tmdb"
)

// TMDBStatus reports whether the proxy is usable.
func (h *Handler) TMDBStatus(w http.ResponseWriter, r *http.Request) {
	if h.tmdb == nil {
		WriteSuccess(w, r, tmdb.Status{})
		return
	}
	WriteSuccess(w, r, h.tmdb.Status())
}

// TMDBProxy forwards GET /api/tmdb/{path} upstream and relays the body.
func (h *Handler) TMDBProxy(w http.ResponseWriter, r *http.Request) {
	if h.tmdb == nil {
		h.fail(w, r, tmdb.ErrNotConfigured)
		return
	}

	resp, err := h.tmdb.Get(r.Context(), chi.URLParam(r, "*"), r.URL.Query())
	if err != nil {
		if f := classify(err); f.status == http.StatusInternalServerError && !errors.Is(err, context.Canceled) {
			// Transport failures reach here; they are the upstream's fault.
			logging.Ctx(r.Context()).Warn().Err(err).Msg("TMDB proxy request failed")
			NewResponseWriter(w, r).Error(http.StatusBadGateway, ErrCodeExternalService, "TMDB is unreachable")
			return
		}
		h.fail(w, r, err)
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	cacheState := "MISS"
	if resp.Cached {
		cacheState = "HIT"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Cache", cacheState)
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}
