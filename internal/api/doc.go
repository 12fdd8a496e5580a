// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

/*
Package api serves the Reelsync HTTP surface on a chi router.

Every JSON response uses one envelope:

	{"success": true, "data": {...}, "meta": {"timestamp": "...", "query_time_ms": 3}}
	{"success": false, "error": {"code": "NOT_FOUND", "message": "...", "request_id": "..."}}

Domain packages return sentinel errors; classify maps them onto HTTP status
codes and error codes in one place so handlers only call fail.

Route groups:

  - /api/auth: register, login, logout, me (strict per-IP rate limit)
  - /api/watch-room: rooms, chat, playback, invitations and the room socket
  - /api/watchlist: saved media and the local storage migration
  - /api/notifications: the caller's notifications
  - /api/admin: guarded by the Casbin role table
  - /api/tmdb: status and the TMDB read-through proxy
  - /health, /metrics, /robots.txt and the sitemaps
*/
package api
