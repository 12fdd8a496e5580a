// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

/*
Package auth resolves request identity.

A request is authenticated by either:

  - the reelsync_session cookie (or X-Session-Token header), looked up in a
    SessionStore (in-memory or BadgerDB), or
  - an "Authorization: Bearer <jwt>" header signed with the configured secret.

Identity resolves the caller into an AuthSubject stored in the request
context. It never rejects a request; handlers and the authz guard decide what
an anonymous caller may do.

Passwords are hashed with bcrypt.
*/
package auth
