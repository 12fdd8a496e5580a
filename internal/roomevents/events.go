// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

// Package roomevents carries watch room changes from the service layer to
// every server instance's WebSocket hub over Watermill.
package roomevents

import (
	"time"

	"github.com/goccy/go-json"
)

// DefaultTopic is used when EventsConfig.Topic is empty.
const DefaultTopic = "watchroom.events"

// EventType names a room change. Clients receive it as the frame type.
type EventType string

const (
	ParticipantJoined EventType = "room.participant_joined"
	ParticipantLeft   EventType = "room.participant_left"
	PlaybackUpdated   EventType = "room.playback_updated"
	ChatMessage       EventType = "room.chat_message"
	RoomClosed        EventType = "room.closed"
	UserNotification  EventType = "user.notification"
)

// Event is the wire envelope. RoomCode targets a room, UserID alone
// targets one user's connections.
type Event struct {
	Type       EventType       `json:"type"`
	RoomCode   string          `json:"roomCode,omitempty"`
	UserID     string          `json:"userId,omitempty"`
	Data       json.RawMessage `json:"data"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// NewRoomEvent builds an event addressed to a room.
func NewRoomEvent(t EventType, roomCode, actorID string, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: t, RoomCode: roomCode, UserID: actorID, Data: raw, OccurredAt: time.Now().UTC()}, nil
}

// NewUserEvent builds an event addressed to one user.
func NewUserEvent(t EventType, userID string, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: t, UserID: userID, Data: raw, OccurredAt: time.Now().UTC()}, nil
}
