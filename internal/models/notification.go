// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package models

import "time"

// NotificationKind classifies notifications.
type NotificationKind string

const (
	NotificationRoomInvite NotificationKind = "room_invite"
	NotificationSystem     NotificationKind = "system"
)

// Notification is addressed to exactly one user.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Body      string           `json:"body,omitempty"`
	Link      string           `json:"link,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

// SystemInfo is returned by the admin system settings endpoint.
type SystemInfo struct {
	AppName          string        `json:"appName"`
	Version          string        `json:"version"`
	GoVersion        string        `json:"goVersion"`
	Environment      string        `json:"environment"`
	StartedAt        time.Time     `json:"startedAt"`
	UptimeSeconds    int64         `json:"uptimeSeconds"`
	Database         DatabaseStats `json:"database"`
	WebSocketClients int           `json:"websocketClients"`
	TMDBConfigured   bool          `json:"tmdbConfigured"`
	TelemetryEnabled bool          `json:"telemetryEnabled"`
	SessionStore     string        `json:"sessionStore"`
	EventTransport   string        `json:"eventTransport"`
}

// DatabaseStats are row counts reported on the admin settings page.
type DatabaseStats struct {
	Users         int64 `json:"users"`
	Rooms         int64 `json:"rooms"`
	OpenRooms     int64 `json:"openRooms"`
	ChatMessages  int64 `json:"chatMessages"`
	Notifications int64 `json:"notifications"`
}
