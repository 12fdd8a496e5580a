// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

/*
Package supervisor runs the long-lived parts of the server under a
thejerf/suture/v4 supervision tree.

	reelsync (root)
	├── maintenance-layer  session cleanup, TMDB cache cleanup
	├── messaging-layer    WebSocket hub, room event forwarder
	└── api-layer          HTTP server

Services that return an error are restarted with suture's backoff. Services
return ctx.Err() on shutdown. Supervisor events are logged through
sutureslog into the zerolog-backed slog handler from internal/logging.

Wrappers for the concrete services live in the services subpackage.
*/
package supervisor
