// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package models

import "time"

// MediaType is the TMDB media kind.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// Valid reports whether t is movie or tv.
func (t MediaType) Valid() bool {
	return t == MediaTypeMovie || t == MediaTypeTV
}

// WatchlistItem is keyed by (UserID, MediaID, MediaType).
type WatchlistItem struct {
	UserID     string    `json:"-"`
	MediaID    string    `json:"mediaId"`
	MediaType  MediaType `json:"mediaType"`
	Title      string    `json:"title"`
	PosterPath string    `json:"posterPath,omitempty"`
	AddedAt    time.Time `json:"addedAt"`
}

// Key returns the natural key without the owner.
func (w WatchlistItem) Key() string {
	return string(w.MediaType) + ":" + w.MediaID
}

// MigrationResult reports what a watchlist migration did.
type MigrationResult struct {
	Migrated int      `json:"migrated"`
	Skipped  int      `json:"skipped"`
	Total    int      `json:"total"`
	Invalid  []string `json:"invalid,omitempty"`
}
