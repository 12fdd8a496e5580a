// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package websocket

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/metrics"
	"github.com/tomtom215/reelsync/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBufferSize = 64

	// frameTimeout bounds one chat or playback frame's database work.
	frameTimeout = 10 * time.Second
)

var clientIDCounter atomic.Uint64

// FrameHandler applies chat and playback frames for one connection. It is
// bound to the connection's room and user.
type FrameHandler interface {
	Chat(ctx context.Context, body string) error
	Playback(ctx context.Context, update models.PlaybackUpdate) error
}

// ErrorMapper turns a FrameHandler error into an error frame payload.
type ErrorMapper func(err error) ErrorData

type chatFrame struct {
	Body string `json:"body"`
}

// Client is one WebSocket connection subscribed to a room.
type Client struct {
	id       uint64
	hub      *Hub
	conn     *websocket.Conn
	send     chan Message
	roomCode string
	userID   string
	handler  FrameHandler
	limiter  *rate.Limiter
	mapError ErrorMapper
}

// NewClient creates a client for conn. limiter may be nil to disable chat
// rate limiting.
func NewClient(hub *Hub, conn *websocket.Conn, roomCode, userID string, handler FrameHandler, limiter *rate.Limiter) *Client {
	return &Client{
		id:       clientIDCounter.Add(1),
		hub:      hub,
		conn:     conn,
		send:     make(chan Message, sendBufferSize),
		roomCode: roomCode,
		userID:   userID,
		handler:  handler,
		limiter:  limiter,
		mapError: defaultErrorMapper,
	}
}

// SetErrorMapper replaces the default error frame translation.
func (c *Client) SetErrorMapper(m ErrorMapper) {
	if m != nil {
		c.mapError = m
	}
}

// ID returns the client's process-unique id.
func (c *Client) ID() uint64 { return c.id }

// RoomCode returns the room this client watches.
func (c *Client) RoomCode() string { return c.roomCode }

func defaultErrorMapper(error) ErrorData {
	return ErrorData{Code: "INTERNAL_ERROR", Message: "Failed to process message"}
}

// Start launches the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("Failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				metrics.WSErrors.WithLabelValues("unexpected_close").Inc()
				logging.Warn().Err(err).Str("room_code", c.roomCode).Msg("Unexpected WebSocket close")
			}
			return
		}
		metrics.WSMessagesReceived.Inc()
		c.handleFrame(raw)
	}
}

// handleFrame dispatches one inbound frame. Failures are reported back to
// this client only.
func (c *Client) handleFrame(raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.reply(MessageTypeError, ErrorData{Code: "BAD_REQUEST", Message: "Malformed frame"})
		return
	}

	switch msg.Type {
	case MessageTypePing:
		c.reply(MessageTypePong, nil)

	case MessageTypeChat:
		if c.limiter != nil && !c.limiter.Allow() {
			metrics.WSErrors.WithLabelValues("rate_limited").Inc()
			c.reply(MessageTypeError, ErrorData{Code: "RATE_LIMIT_EXCEEDED", Message: "Too many messages"})
			return
		}
		var frame chatFrame
		if err := json.Unmarshal(msg.Data, &frame); err != nil {
			c.reply(MessageTypeError, ErrorData{Code: "BAD_REQUEST", Message: "Chat frame requires a body"})
			return
		}
		c.apply(func(ctx context.Context) error { return c.handler.Chat(ctx, frame.Body) })

	case MessageTypePlayback:
		var update models.PlaybackUpdate
		if err := json.Unmarshal(msg.Data, &update); err != nil {
			c.reply(MessageTypeError, ErrorData{Code: "BAD_REQUEST", Message: "Malformed playback frame"})
			return
		}
		c.apply(func(ctx context.Context) error { return c.handler.Playback(ctx, update) })

	default:
		c.reply(MessageTypeError, ErrorData{Code: "BAD_REQUEST", Message: "Unknown frame type"})
	}
}

func (c *Client) apply(fn func(ctx context.Context) error) {
	if c.handler == nil {
		c.reply(MessageTypeError, ErrorData{Code: "FORBIDDEN", Message: "Read-only connection"})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		c.reply(MessageTypeError, c.mapError(err))
	}
}

// reply queues a frame for this client without blocking. The hub may have
// already closed send, so the write is guarded.
func (c *Client) reply(messageType string, data interface{}) {
	msg := Message{Type: messageType}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return
		}
		msg.Data = raw
	}
	defer func() { _ = recover() }()
	select {
	case c.send <- msg:
	default:
		metrics.WSErrors.WithLabelValues("buffer_full").Inc()
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(message)
			if err != nil {
				logging.Error().Err(err).Str("message_type", message.Type).Msg("Failed to marshal WebSocket frame")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
