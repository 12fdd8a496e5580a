// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/reelsync/internal/authz"
	"github.com/tomtom215/reelsync/internal/middleware"
)

// NewRouter wires every route onto a chi router.
func NewRouter(h *Handler) http.Handler {
	mw := NewChiMiddleware(&h.cfg.Security)
	r := chi.NewRouter()

	// Global middleware, applied in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())
	r.Use(middleware.PrometheusMetrics)
	if h.perf != nil {
		r.Use(h.perf.Middleware)
	}
	r.Use(middleware.Compression)
	r.Use(h.sessions.Identity)

	guard := func(object, action string) func(http.Handler) http.Handler {
		return h.enforcer.Require(object, action, h.deny)
	}

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/robots.txt", h.Robots)
	r.Get("/sitemap.xml", h.Sitemap)
	r.Get("/sitemap-movies.xml", h.MovieSitemap)
	r.Get("/sitemap-tv.xml", h.TVSitemap)

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.With(mw.RateLimitAuth()).Post("/register", h.Register)
		r.With(mw.RateLimitAuth()).Post("/login", h.Login)
		r.With(mw.RateLimit()).Post("/logout", h.Logout)
		r.With(mw.RateLimit(), guard(authz.ObjectUsers, authz.ActionRead)).Get("/me", h.Me)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Use(APISecurityHeaders())

		r.Get("/tmdb", h.TMDBStatus)
		r.Get("/tmdb/*", h.TMDBProxy)

		r.With(guard(authz.ObjectUsers, authz.ActionSearch)).Get("/users/search", h.SearchUsers)

		r.Route("/watch-room", func(r chi.Router) {
			read := guard(authz.ObjectWatchRoom, authz.ActionRead)
			write := guard(authz.ObjectWatchRoom, authz.ActionWrite)

			r.With(write).Post("/", h.CreateRoom)
			r.With(read).Get("/chat", h.ChatHistory)
			r.With(write).Post("/chat", h.PostChat)
			r.With(read).Get("/ws", h.WatchRoomSocket)
			r.With(read).Get("/{code}", h.GetRoom)
			r.With(write).Post("/{code}/join", h.JoinRoom)
			r.With(write).Post("/{code}/leave", h.LeaveRoom)
			r.With(write).Put("/{code}/playback", h.UpdatePlayback)
			r.With(write).Post("/{code}/invite", h.InviteUser)
		})

		r.Route("/watchlist", func(r chi.Router) {
			r.With(guard(authz.ObjectWatchlist, authz.ActionRead)).Get("/", h.ListWatchlist)
			r.With(guard(authz.ObjectWatchlist, authz.ActionWrite)).Post("/", h.AddToWatchlist)
			r.With(guard(authz.ObjectWatchlist, authz.ActionWrite)).Post("/migrate", h.MigrateWatchlist)
			r.With(guard(authz.ObjectWatchlist, authz.ActionDelete)).Delete("/{mediaType}/{mediaId}", h.RemoveFromWatchlist)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.With(guard(authz.ObjectNotifications, authz.ActionRead)).Get("/", h.ListNotifications)
			r.With(guard(authz.ObjectNotifications, authz.ActionWrite)).Post("/{id}/read", h.MarkNotificationRead)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.enforcer.RequireAdmin(h.deny))
			r.Delete("/notifications/{id}", h.AdminDeleteNotification)
			r.Get("/notifications/unread", h.AdminUnreadCount)
			r.Delete("/rooms/{code}", h.AdminDeleteRoom)
			r.Get("/settings/system", h.AdminSystemSettings)
			r.Get("/audit", h.AdminAuditEvents)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	})

	return r
}
