// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package websocket

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsync/internal/logging"
)

//nolint:gochecknoinits // init keeps test output quiet
func init() {
	logging.Init(logging.Config{Level: "info", Format: "json", Output: io.Discard})
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// fakeClient has no connection; tests read its send buffer directly.
func fakeClient(roomCode, userID string, buffer int) *Client {
	return &Client{
		id:       clientIDCounter.Add(1),
		send:     make(chan Message, buffer),
		roomCode: roomCode,
		userID:   userID,
		mapError: defaultErrorMapper,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 1s")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message within 1s")
	}
	return Message{}
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message %+v", msg)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestHub_RoomFanOut(t *testing.T) {
	hub := startHub(t)
	a := fakeClient("ABC234", "u1", 8)
	b := fakeClient("ABC234", "u2", 8)
	other := fakeClient("XYZ789", "u3", 8)
	for _, c := range []*Client{a, b, other} {
		hub.Register(c)
	}
	waitFor(t, func() bool { return hub.ClientCount() == 3 })
	if got := hub.RoomClientCount("ABC234"); got != 2 {
		t.Fatalf("RoomClientCount = %d, want 2", got)
	}

	hub.BroadcastToRoom("ABC234", "room.playback_updated", map[string]any{"position": 42.5})

	for _, c := range []*Client{a, b} {
		msg := receive(t, c)
		if msg.Type != "room.playback_updated" {
			t.Errorf("type = %q", msg.Type)
		}
		var data map[string]float64
		if err := json.Unmarshal(msg.Data, &data); err != nil || data["position"] != 42.5 {
			t.Errorf("data = %s (%v)", msg.Data, err)
		}
	}
	expectNothing(t, other)
}

func TestHub_BroadcastRaw(t *testing.T) {
	hub := startHub(t)
	inRoom := fakeClient("ABC234", "u1", 8)
	invitee := fakeClient("", "u2", 8)
	hub.Register(inRoom)
	hub.Register(invitee)
	waitFor(t, func() bool { return hub.ClientCount() == 2 })

	tests := []struct {
		name    string
		payload string
		target  *Client
		want    string
	}{
		{
			name:    "room event",
			payload: `{"type":"room.chat_message","roomCode":"ABC234","userId":"u9","data":{"seq":1}}`,
			target:  inRoom,
			want:    "room.chat_message",
		},
		{
			name:    "user notification",
			payload: `{"type":"user.notification","userId":"u2","data":{"kind":"room_invite"}}`,
			target:  invitee,
			want:    "user.notification",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub.BroadcastRaw([]byte(tt.payload))
			msg := receive(t, tt.target)
			if msg.Type != tt.want {
				t.Errorf("type = %q, want %q", msg.Type, tt.want)
			}
		})
	}

	// Malformed and untargeted events are dropped.
	hub.BroadcastRaw([]byte(`not json`))
	hub.BroadcastRaw([]byte(`{"type":"room.closed"}`))
	expectNothing(t, inRoom)
	expectNothing(t, invitee)
}

func expectClosed(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if ok {
			t.Fatalf("expected closed send buffer, got %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("send buffer not closed within 1s")
	}
}

func TestHub_ParticipantLeftDetachesUser(t *testing.T) {
	hub := startHub(t)
	bob := fakeClient("ABC234", "bob", 8)
	alice := fakeClient("ABC234", "alice", 8)
	hub.Register(bob)
	hub.Register(alice)
	waitFor(t, func() bool { return hub.RoomClientCount("ABC234") == 2 })

	hub.BroadcastRaw([]byte(`{"type":"room.participant_left","roomCode":"ABC234","userId":"bob","data":{"userId":"bob"}}`))
	if msg := receive(t, bob); msg.Type != "room.participant_left" {
		t.Errorf("bob got %q, want room.participant_left", msg.Type)
	}
	expectClosed(t, bob)
	if msg := receive(t, alice); msg.Type != "room.participant_left" {
		t.Errorf("alice got %q", msg.Type)
	}
	waitFor(t, func() bool { return hub.RoomClientCount("ABC234") == 1 })

	hub.BroadcastRaw([]byte(`{"type":"room.chat_message","roomCode":"ABC234","userId":"alice","data":{"body":"private"}}`))
	if msg := receive(t, alice); msg.Type != "room.chat_message" {
		t.Errorf("alice got %q", msg.Type)
	}
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount = %d, want 1", hub.ClientCount())
	}
}

func TestHub_RoomClosedDetachesEveryone(t *testing.T) {
	hub := startHub(t)
	a := fakeClient("ABC234", "alice", 8)
	b := fakeClient("ABC234", "bob", 8)
	other := fakeClient("XYZ789", "carol", 8)
	for _, c := range []*Client{a, b, other} {
		hub.Register(c)
	}
	waitFor(t, func() bool { return hub.ClientCount() == 3 })

	hub.BroadcastRaw([]byte(`{"type":"room.closed","roomCode":"ABC234","data":{"code":"ABC234"}}`))
	for _, c := range []*Client{a, b} {
		if msg := receive(t, c); msg.Type != "room.closed" {
			t.Errorf("got %q, want room.closed", msg.Type)
		}
		expectClosed(t, c)
	}
	waitFor(t, func() bool { return hub.RoomClientCount("ABC234") == 0 })

	hub.BroadcastRaw([]byte(`{"type":"room.chat_message","roomCode":"ABC234","data":{"body":"late"}}`))
	expectNothing(t, other)
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount = %d, want 1", hub.ClientCount())
	}
}

func TestHub_SendToUser(t *testing.T) {
	hub := startHub(t)
	tab1 := fakeClient("ABC234", "u1", 8)
	tab2 := fakeClient("", "u1", 8)
	stranger := fakeClient("ABC234", "u2", 8)
	for _, c := range []*Client{tab1, tab2, stranger} {
		hub.Register(c)
	}
	waitFor(t, func() bool { return hub.ClientCount() == 3 })

	hub.SendToUser("u1", "user.notification", map[string]string{"id": "n1"})
	receive(t, tab1)
	receive(t, tab2)
	expectNothing(t, stranger)
}

func TestHub_SlowClientDropped(t *testing.T) {
	hub := startHub(t)
	slow := fakeClient("ABC234", "u1", 1)
	fast := fakeClient("ABC234", "u2", 8)
	hub.Register(slow)
	hub.Register(fast)
	waitFor(t, func() bool { return hub.ClientCount() == 2 })

	hub.BroadcastToRoom("ABC234", "room.chat_message", 1)
	hub.BroadcastToRoom("ABC234", "room.chat_message", 2)

	waitFor(t, func() bool { return hub.ClientCount() == 1 })
	receive(t, fast)
	receive(t, fast)

	<-slow.send
	if _, ok := <-slow.send; ok {
		t.Error("slow client's channel should be closed")
	}
}

func TestHub_UnregisterAndShutdown(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()

	a := fakeClient("ABC234", "u1", 8)
	b := fakeClient("ABC234", "u2", 8)
	hub.Register(a)
	hub.Register(b)
	hub.Unregister(a)
	hub.Unregister(a) // second unregister is a no-op
	waitFor(t, func() bool { return hub.ClientCount() == 1 })
	if _, ok := <-a.send; ok {
		t.Error("unregistered client's channel should be closed")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	if hub.ClientCount() != 0 || hub.RoomClientCount("ABC234") != 0 {
		t.Error("shutdown should close every client")
	}
	if _, ok := <-b.send; ok {
		t.Error("client channel should be closed on shutdown")
	}
}

func TestShutdownReason(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := shutdownReason(ctx); got != ShutdownReasonContextCanceled {
		t.Errorf("canceled: %q", got)
	}
	ctx, cancel = context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	if got := shutdownReason(ctx); got != ShutdownReasonContextDeadline {
		t.Errorf("deadline: %q", got)
	}
}
