// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package models

import "time"

// ChatMessage is immutable once stored. Seq starts at 1 in every room and
// increases by one per message.
type ChatMessage struct {
	RoomCode   string    `json:"roomCode"`
	Seq        int64     `json:"seq"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
}
