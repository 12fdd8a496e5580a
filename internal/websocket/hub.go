// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/metrics"
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Frame types sent by or to clients. Room events use their event type
// (room.chat_message etc.) verbatim.
const (
	MessageTypeChat     = "chat"
	MessageTypePlayback = "playback"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
	MessageTypeError    = "error"
)

// Message is one WebSocket frame.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ErrorData is the payload of an error frame.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// routedEvent is the subset of the room event envelope the hub needs.
type routedEvent struct {
	Type     string          `json:"type"`
	RoomCode string          `json:"roomCode,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Data     json.RawMessage `json:"data"`
}

// Room events that end room membership. Their sockets are closed after
// the event is delivered.
const (
	eventParticipantLeft = "room.participant_left"
	eventRoomClosed      = "room.closed"
)

// delivery targets either a room or a user. After sending, detachAll
// closes every room socket and detachUser closes that user's room sockets.
type delivery struct {
	roomCode   string
	userID     string
	message    Message
	detachAll  bool
	detachUser string
}

// Hub tracks connected clients by room and user.
type Hub struct {
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
	users   map[string]map[*Client]struct{}

	broadcast  chan delivery
	register   chan *Client
	unregister chan *Client

	// mu guards reads from other goroutines; writes happen only in RunWithContext.
	mu sync.RWMutex
}

// NewHub creates a hub. Call RunWithContext before registering clients.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		users:      make(map[string]map[*Client]struct{}),
		broadcast:  make(chan delivery, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Register hands c to the hub loop.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister removes c and closes its send buffer.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// RunWithContext owns the client maps until ctx is done. Lifecycle
// events are drained before broadcasts so room membership is current
// when a message fans out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case c := <-h.register:
			h.add(c)
			continue
		case c := <-h.unregister:
			h.remove(c)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case d := <-h.broadcast:
			h.deliver(d)
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	if c.roomCode != "" {
		if h.rooms[c.roomCode] == nil {
			h.rooms[c.roomCode] = make(map[*Client]struct{})
		}
		h.rooms[c.roomCode][c] = struct{}{}
		metrics.WSRoomSubscriptions.Inc()
	}
	if c.userID != "" {
		if h.users[c.userID] == nil {
			h.users[c.userID] = make(map[*Client]struct{})
		}
		h.users[c.userID][c] = struct{}{}
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	logging.Debug().
		Str("room_code", c.roomCode).
		Str("user_id", c.userID).
		Int("total_clients", total).
		Msg("WebSocket client connected")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	removed := h.detachLocked(c)
	total := len(h.clients)
	h.mu.Unlock()

	if removed {
		logging.Debug().
			Str("room_code", c.roomCode).
			Int("total_clients", total).
			Msg("WebSocket client disconnected")
	}
}

// detachLocked drops c from every index and closes its buffer. It is a
// no-op for clients that are already gone.
func (h *Hub) detachLocked(c *Client) bool {
	if _, ok := h.clients[c]; !ok {
		return false
	}
	delete(h.clients, c)
	if members, ok := h.rooms[c.roomCode]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, c.roomCode)
		}
		metrics.WSRoomSubscriptions.Dec()
	}
	if members, ok := h.users[c.userID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.users, c.userID)
		}
	}
	close(c.send)
	metrics.WSConnections.Dec()
	return true
}

// deliver sends to the target set in client id order. Clients whose
// buffer is full are disconnected.
func (h *Hub) deliver(d delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var members map[*Client]struct{}
	if d.roomCode != "" {
		members = h.rooms[d.roomCode]
	} else {
		members = h.users[d.userID]
	}
	if len(members) == 0 {
		return
	}

	targets := sortedClients(members)
	var slow []*Client
	for _, c := range targets {
		select {
		case c.send <- d.message:
			metrics.WSMessagesSent.Inc()
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		metrics.WSErrors.WithLabelValues("buffer_full").Inc()
		logging.Warn().
			Str("room_code", c.roomCode).
			Str("user_id", c.userID).
			Msg("WebSocket client buffer full, disconnecting")
		h.detachLocked(c)
	}

	if d.roomCode == "" || (!d.detachAll && d.detachUser == "") {
		return
	}
	for _, c := range targets {
		if d.detachAll || c.userID == d.detachUser {
			if h.detachLocked(c) {
				logging.Debug().
					Str("room_code", c.roomCode).
					Str("user_id", c.userID).
					Str("event_type", d.message.Type).
					Msg("WebSocket client detached from room")
			}
		}
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	count := len(h.clients)
	for _, c := range sortedClients(h.clients) {
		h.detachLocked(c)
	}
	h.mu.Unlock()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(shutdownReason(ctx))).
		Int("clients_closed", count).
		Msg("WebSocket hub stopped")
}

func shutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

func sortedClients(set map[*Client]struct{}) []*Client {
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (h *Hub) enqueue(d delivery) {
	select {
	case h.broadcast <- d:
	default:
		metrics.WSErrors.WithLabelValues("broadcast_full").Inc()
		logging.Warn().
			Str("message_type", d.message.Type).
			Str("room_code", d.roomCode).
			Msg("Broadcast channel full, dropping message")
	}
}

// BroadcastToRoom queues a frame for every client in roomCode.
func (h *Hub) BroadcastToRoom(roomCode, messageType string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		logging.Error().Err(err).Str("message_type", messageType).Msg("Failed to marshal room broadcast")
		return
	}
	h.enqueue(delivery{roomCode: roomCode, message: Message{Type: messageType, Data: raw}})
}

// SendToUser queues a frame for every connection of userID.
func (h *Hub) SendToUser(userID, messageType string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		logging.Error().Err(err).Str("message_type", messageType).Msg("Failed to marshal user message")
		return
	}
	h.enqueue(delivery{userID: userID, message: Message{Type: messageType, Data: raw}})
}

// BroadcastRaw routes an encoded room event. Events with a room code go
// to that room; events with only a user id go to that user. A leave
// closes the leaving user's sockets in the room and a close closes all
// of them, each after the event itself is delivered.
func (h *Hub) BroadcastRaw(payload []byte) {
	var ev routedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		metrics.WSErrors.WithLabelValues("bad_event").Inc()
		logging.Warn().Err(err).Msg("Failed to unmarshal room event for broadcast")
		return
	}
	if ev.Type == "" || (ev.RoomCode == "" && ev.UserID == "") {
		metrics.WSErrors.WithLabelValues("bad_event").Inc()
		logging.Warn().Str("event_type", ev.Type).Msg("Room event has no target, dropping")
		return
	}

	d := delivery{message: Message{Type: ev.Type, Data: ev.Data}}
	if ev.RoomCode != "" {
		d.roomCode = ev.RoomCode
		switch ev.Type {
		case eventRoomClosed:
			d.detachAll = true
		case eventParticipantLeft:
			d.detachUser = ev.UserID
		}
	} else {
		d.userID = ev.UserID
	}
	h.enqueue(d)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomClientCount returns the number of clients watching roomCode.
func (h *Hub) RoomClientCount(roomCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomCode])
}
