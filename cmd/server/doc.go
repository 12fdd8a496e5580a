// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

/*
Package main is the entry point for the Reelsync server.

Reelsync backs a movie and TV discovery site: accounts and sessions, a TMDB
read-through proxy, per-user watchlists, and watch-together rooms with chat
and synchronized playback delivered over WebSocket.

# Application Architecture

Long-running components run under a Suture v4 supervisor tree:

	RootSupervisor ("reelsync")
	├── MaintenanceSupervisor ("maintenance-layer")
	│   ├── session-cleanup (expired sessions, every 5 minutes)
	│   ├── tmdb-cache-cleanup
	│   ├── db-checkpoint
	│   ├── audit-logger
	│   └── audit-retention
	├── MessagingSupervisor ("messaging-layer")
	│   ├── websocket-hub
	│   └── room-event-forwarder (Watermill topic watchroom.events)
	└── APISupervisor ("api-layer")
	    └── http-server

Startup order:

 1. Configuration: Koanf v2 (defaults, config.yaml, environment)
 2. Logging and error telemetry (zerolog, optional Sentry)
 3. DuckDB, the session store (BadgerDB or memory) and the Casbin enforcer
 4. TMDB client, room event bus (NATS or in-process GoChannel), WebSocket hub.
    With NATS_EMBEDDED=true and no NATS_URL an in-process NATS server is
    started first and the bus connects to it.
 5. Domain services, the chi router and the HTTP server
 6. Supervisor tree

# Signal Handling

SIGINT and SIGTERM stop the tree. The HTTP server drains in-flight requests
for up to 10 seconds, then the event bus, the embedded NATS server (if any), session store and
database close.

# Example Usage

	export JWT_SECRET=$(openssl rand -base64 32)
	export TMDB_API_KEY=your-tmdb-key
	export ADMIN_EMAILS=you@example.com
	./reelsync
*/
package main
