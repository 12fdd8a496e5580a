// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/reelsync/internal/audit"
	"github.com/tomtom215/reelsync/internal/auth"
	"github.com/tomtom215/reelsync/internal/authz"
	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/database"
	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/middleware"
	"github.com/tomtom215/reelsync/internal/seo"
	"github.com/tomtom215/reelsync/internal/telemetry"
	"github.com/tomtom215/reelsync/internal/tmdb"
	"github.com/tomtom215/reelsync/internal/watchlist"
	"github.com/tomtom215/reelsync/internal/watchroom"
	ws "github.com/tomtom215/reelsync/internal/websocket"
)

// Deps are the collaborators the handlers need. Reporter defaults to
// telemetry.LogReporter; Perf and Audit may be nil.
type Deps struct {
	Config         *config.Config
	DB             *database.DB
	Rooms          *watchroom.Service
	Watchlist      *watchlist.Service
	Sessions       *auth.Manager
	Enforcer       *authz.Enforcer
	TMDB           *tmdb.Client
	SEO            *seo.Generator
	Hub            *ws.Hub
	Reporter       telemetry.Reporter
	Perf           *middleware.PerformanceMonitor
	Audit          *audit.Logger
	EventTransport string
	Version        string
}

// Handler serves every HTTP endpoint.
type Handler struct {
	cfg            *config.Config
	db             *database.DB
	rooms          *watchroom.Service
	watchlist      *watchlist.Service
	sessions       *auth.Manager
	enforcer       *authz.Enforcer
	tmdb           *tmdb.Client
	seo            *seo.Generator
	hub            *ws.Hub
	reporter       telemetry.Reporter
	perf           *middleware.PerformanceMonitor
	audit          *audit.Logger
	eventTransport string
	version        string
	startTime      time.Time
	upgrader       websocket.Upgrader
}

// NewHandler builds a Handler from deps.
func NewHandler(deps Deps) *Handler {
	h := &Handler{
		cfg:            deps.Config,
		db:             deps.DB,
		rooms:          deps.Rooms,
		watchlist:      deps.Watchlist,
		sessions:       deps.Sessions,
		enforcer:       deps.Enforcer,
		tmdb:           deps.TMDB,
		seo:            deps.SEO,
		hub:            deps.Hub,
		reporter:       deps.Reporter,
		perf:           deps.Perf,
		audit:          deps.Audit,
		eventTransport: deps.EventTransport,
		version:        deps.Version,
		startTime:      time.Now(),
	}
	if h.reporter == nil {
		h.reporter = telemetry.LogReporter{}
	}
	if h.version == "" {
		h.version = "dev"
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return h
}

// checkWebSocketOrigin accepts same-host upgrades and the configured CORS
// origins. Browsers always send Origin, so a missing one is rejected.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Ctx(r.Context()).Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}
	if origin == "http://"+r.Host || origin == "https://"+r.Host {
		return true
	}
	for _, allowed := range h.cfg.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Ctx(r.Context()).Warn().Str("origin", origin).Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// subject returns the caller. Routes behind requireSession always have one.
func subject(r *http.Request) *auth.AuthSubject {
	return auth.GetAuthSubject(r.Context())
}

// identity converts the caller into the watch room identity.
func identity(r *http.Request) watchroom.Identity {
	s := subject(r)
	if s == nil {
		return watchroom.Identity{}
	}
	return watchroom.Identity{UserID: s.ID, Name: s.Name}
}

// actor converts the caller into an audit actor.
func actor(r *http.Request) audit.Actor {
	s := subject(r)
	if s == nil {
		return audit.Actor{}
	}
	return audit.Actor{ID: s.ID, Email: s.Email, Role: string(s.Role)}
}
