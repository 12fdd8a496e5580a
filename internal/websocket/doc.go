// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

/*
Package websocket fans watch room events out to connected browsers.

The hub owns three indexes, all mutated only by its RunWithContext
goroutine:

	clients  every connected *Client
	rooms    room code -> clients watching that room
	users    user id   -> clients of that user (invite notifications)

Each Client has two goroutines:
  - readPump: decodes {type, data} frames, answers ping, forwards chat and
    playback frames to its FrameHandler under a per-connection rate limit
  - writePump: drains the send buffer and keeps the connection alive

Room events reach the hub through BroadcastRaw, which routes the JSON
envelope published on the room event bus:

	{"type":"room.chat_message","roomCode":"ABC234","data":{...}}
	{"type":"user.notification","userId":"...","data":{...}}

Sends never block the hub. A client whose buffer is full is dropped and
must reconnect.

Usage:

	hub := websocket.NewHub()
	go hub.RunWithContext(ctx) // normally supervised

	client := websocket.NewClient(hub, conn, roomCode, userID, handler, limiter)
	hub.Register(client)
	client.Start()
*/
package websocket
