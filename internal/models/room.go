// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package models

import (
	"strings"
	"time"
)

// RoomCodeAlphabet excludes I, O, 0 and 1.
const RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RoomCodeLength is the number of characters in a room code.
const RoomCodeLength = 6

// NormalizeRoomCode uppercases and trims a user-supplied code.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidRoomCode reports whether code has the right length and alphabet.
func ValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(RoomCodeAlphabet, r) {
			return false
		}
	}
	return true
}

// ParticipantRole distinguishes the room host from guests.
type ParticipantRole string

const (
	ParticipantHost  ParticipantRole = "host"
	ParticipantGuest ParticipantRole = "guest"
)

// Room is a watch-together session. Code is assigned once at creation.
type Room struct {
	Code         string        `json:"code"`
	Title        string        `json:"title"`
	HostID       string        `json:"hostId"`
	CreatedAt    time.Time     `json:"createdAt"`
	ClosedAt     *time.Time    `json:"closedAt,omitempty"`
	Playback     PlaybackState `json:"playback"`
	Participants []Participant `json:"participants"`
	LastSeq      int64         `json:"lastSeq"`
}

// IsClosed reports whether the room was closed.
func (r *Room) IsClosed() bool {
	return r.ClosedAt != nil
}

// HasParticipant reports whether userID is currently in the room.
func (r *Room) HasParticipant(userID string) bool {
	for i := range r.Participants {
		if r.Participants[i].UserID == userID {
			return true
		}
	}
	return false
}

// Participant is a user's membership in a room.
type Participant struct {
	RoomCode string          `json:"roomCode"`
	UserID   string          `json:"userId"`
	Name     string          `json:"name"`
	Role     ParticipantRole `json:"role"`
	JoinedAt time.Time       `json:"joinedAt"`
}

// PlaybackState is replaced wholesale on every update.
type PlaybackState struct {
	MediaID   string    `json:"mediaId"`
	MediaType MediaType `json:"mediaType,omitempty"`
	Position  float64   `json:"position"`
	Paused    bool      `json:"paused"`
	UpdatedBy string    `json:"updatedBy,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PlaybackUpdate is what a participant sends to change playback.
type PlaybackUpdate struct {
	MediaID   string    `json:"mediaId" validate:"required,max=64"`
	MediaType MediaType `json:"mediaType" validate:"omitempty,oneof=movie tv"`
	Position  float64   `json:"position" validate:"gte=0"`
	Paused    bool      `json:"paused"`
}
