// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

/*
Package metrics registers the Prometheus collectors exported at /metrics.

Collectors are package-level promauto variables; callers use the Record*
helpers rather than touching label sets directly.

Families:
  - api_*: request count, latency, in-flight gauge, rate limit rejections
  - websocket_*: connections, room subscriptions, messages, errors
  - watchroom_*: rooms created/closed, chat messages, playback updates
  - room_events_*: published and consumed watch room events
  - tmdb_*: upstream proxy requests and latency
  - cache_*: hit/miss per cache
  - circuit_breaker_*: state and transitions for TMDB and the event publisher
  - authz_decisions_total: guard outcomes per role
  - sessions_*: expired session cleanup
*/
package metrics
