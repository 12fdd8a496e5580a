// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/reelsync/internal/models"
)

const healthTimeout = 2 * time.Second

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Database  string `json:"database"`
	UptimeSec int64  `json:"uptimeSeconds"`
}

// Health pings the database. It returns 503 when the ping fails so load
// balancers take the instance out of rotation.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{
		Status:    "healthy",
		Version:   h.version,
		Database:  "ok",
		UptimeSec: int64(time.Since(h.startTime) / time.Second),
	}
	if err := h.db.Ping(ctx); err != nil {
		h.reporter.CaptureError(r.Context(), err, map[string]string{"route": "health"})
		resp.Status = "unhealthy"
		resp.Database = "unreachable"
		NewResponseWriter(w, r).ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable,
			"Database is unreachable", resp)
		return
	}
	WriteSuccess(w, r, resp)
}

// Robots serves robots.txt.
func (h *Handler) Robots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write([]byte(h.seo.Robots()))
}

// Sitemap serves the static page sitemap.
func (h *Handler) Sitemap(w http.ResponseWriter, r *http.Request) {
	body, err := h.seo.StaticSitemap()
	h.writeXML(w, r, body, err)
}

// MovieSitemap serves the popular movie sitemap.
func (h *Handler) MovieSitemap(w http.ResponseWriter, r *http.Request) {
	body, err := h.seo.MediaSitemap(r.Context(), models.MediaTypeMovie)
	h.writeXML(w, r, body, err)
}

// TVSitemap serves the popular TV sitemap.
func (h *Handler) TVSitemap(w http.ResponseWriter, r *http.Request) {
	body, err := h.seo.MediaSitemap(r.Context(), models.MediaTypeTV)
	h.writeXML(w, r, body, err)
}

func (h *Handler) writeXML(w http.ResponseWriter, r *http.Request, body []byte, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(body)
}
