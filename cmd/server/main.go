// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/reelsync/internal/api"
	"github.com/tomtom215/reelsync/internal/audit"
	"github.com/tomtom215/reelsync/internal/auth"
	"github.com/tomtom215/reelsync/internal/authz"
	"github.com/tomtom215/reelsync/internal/cache"
	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/database"
	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/middleware"
	"github.com/tomtom215/reelsync/internal/roomevents"
	"github.com/tomtom215/reelsync/internal/seo"
	"github.com/tomtom215/reelsync/internal/supervisor"
	"github.com/tomtom215/reelsync/internal/supervisor/services"
	"github.com/tomtom215/reelsync/internal/telemetry"
	"github.com/tomtom215/reelsync/internal/tmdb"
	"github.com/tomtom215/reelsync/internal/watchlist"
	"github.com/tomtom215/reelsync/internal/watchroom"
	ws "github.com/tomtom215/reelsync/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	shutdownTimeout        = 10 * time.Second
	sessionCleanupInterval = 5 * time.Minute
	cacheCleanupInterval   = time.Minute
	checkpointInterval     = 15 * time.Minute
	auditPurgeInterval     = 6 * time.Hour
	tmdbCacheEntries       = 2000
	perfWindow             = 1000
)

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Str("version", version).Str("environment", cfg.Server.Environment).Msg("Starting Reelsync")

	reporter, err := telemetry.New(&cfg.Telemetry, cfg.Server.Environment, version)
	if err != nil {
		logging.Warn().Err(err).Msg("Error telemetry disabled")
		reporter = telemetry.LogReporter{}
	}
	defer reporter.Flush(cfg.Telemetry.FlushTimeout)

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Str("path", cfg.Database.Path).Msg("Database initialized")

	sessionStore, err := auth.OpenSessionStore(cfg.Security.SessionStore, cfg.Security.SessionStorePath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open session store")
	}
	defer func() {
		if err := sessionStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing session store")
		}
	}()

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}
	sessions := auth.NewManager(sessionStore, jwtManager, &cfg.Security)

	enforcer, err := authz.NewEnforcer()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load authorization policy")
	}

	tmdbCache := cache.New("tmdb", cfg.TMDB.CacheTTL, tmdbCacheEntries)
	tmdbClient := tmdb.NewClient(cfg.TMDB, tmdbCache)
	if !tmdbClient.Configured() {
		logging.Warn().Msg("TMDB_API_KEY is not set; the TMDB proxy will answer 503")
	}

	if cfg.Events.EmbeddedNATS && cfg.Events.NATSURL == "" {
		natsServer, err := roomevents.NewEmbeddedServer(cfg.Events.EmbeddedHost, cfg.Events.EmbeddedPort)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to start embedded NATS server")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := natsServer.Shutdown(shutdownCtx); err != nil {
				logging.Error().Err(err).Msg("Error stopping embedded NATS server")
			}
		}()
		cfg.Events.NATSURL = natsServer.ClientURL()
		logging.Info().Str("url", cfg.Events.NATSURL).Msg("Embedded NATS server started")
	}

	bus, err := roomevents.NewBus(&cfg.Events, logging.NewWatermillAdapter())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create room event bus")
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing room event bus")
		}
	}()
	logging.Info().Str("transport", bus.Transport()).Msg("Room event bus ready")

	var auditLog *audit.Logger
	if cfg.Audit.Enabled {
		auditStore := audit.NewDuckDBStore(db.Conn())
		if err := auditStore.CreateTable(context.Background()); err != nil {
			logging.Fatal().Err(err).Msg("Failed to create audit table")
		}
		auditLog = audit.NewLogger(auditStore, audit.Config{
			BufferSize:  cfg.Audit.BufferSize,
			Retention:   cfg.Audit.Retention,
			LogToStdout: cfg.Audit.LogToStdout,
		})
	}

	hub := ws.NewHub()
	perf := middleware.NewPerformanceMonitor(perfWindow, middleware.DefaultSlowThreshold)

	handler := api.NewHandler(api.Deps{
		Config:         cfg,
		DB:             db,
		Rooms:          watchroom.NewService(db, bus, cfg.WatchRoom),
		Watchlist:      watchlist.NewService(db),
		Sessions:       sessions,
		Enforcer:       enforcer,
		TMDB:           tmdbClient,
		SEO:            seo.NewGenerator(cfg.Site.BaseURL, tmdbClient),
		Hub:            hub,
		Reporter:       reporter,
		Perf:           perf,
		Audit:          auditLog,
		EventTransport: bus.Transport(),
		Version:        version,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
		// No WriteTimeout: WebSocket connections are long-lived.
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  shutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddMaintenanceService(services.NewSessionCleanupService(sessionStore, sessionCleanupInterval))
	tree.AddMaintenanceService(services.NewCacheCleanupService("tmdb-cache-cleanup", tmdbCache, cacheCleanupInterval))
	tree.AddMaintenanceService(services.NewPeriodicService("db-checkpoint", checkpointInterval, func(ctx context.Context) (int, error) {
		return 0, db.Checkpoint(ctx)
	}))
	if auditLog != nil {
		tree.AddMaintenanceService(auditLog)
		tree.AddMaintenanceService(services.NewPeriodicService("audit-retention", auditPurgeInterval, auditLog.Purge))
	}
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(roomevents.NewForwarder(bus, hub))
	tree.AddAPIService(services.NewHTTPServerService(server, shutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for services to stop")
		treeErr = <-errCh
	case treeErr = <-errCh:
		stop()
	}
	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		logging.Error().Err(treeErr).Msg("Supervisor tree error")
		reporter.CaptureError(context.Background(), treeErr, map[string]string{"component": "supervisor"})
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	logging.Info().Msg("Reelsync stopped")
}
