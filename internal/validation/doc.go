// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

// Package validation wraps a shared go-playground/validator instance.
//
// Field names in error messages are the JSON names, so a failure on
// RegisterRequest.Password reads "password must be at least 8 characters".
//
// Custom tags:
//   - roomcode: six characters from the room code alphabet
//   - mediatype: "movie" or "tv"
package validation
