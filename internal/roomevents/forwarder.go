// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package roomevents

import (
	"context"
	"fmt"

	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/metrics"
)

// Broadcaster receives encoded events. *websocket.Hub implements it.
type Broadcaster interface {
	BroadcastRaw(payload []byte)
}

// Forwarder hands every event on the bus to a Broadcaster. It implements
// suture.Service.
type Forwarder struct {
	bus *Bus
	out Broadcaster
}

// NewForwarder creates a forwarder from bus to out.
func NewForwarder(bus *Bus, out Broadcaster) *Forwarder {
	return &Forwarder{bus: bus, out: out}
}

// Serve subscribes and forwards until ctx is done. A closed subscription
// returns an error so the supervisor restarts the forwarder.
func (f *Forwarder) Serve(ctx context.Context) error {
	messages, err := f.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", f.bus.Topic(), err)
	}
	logging.Info().
		Str("topic", f.bus.Topic()).
		Str("transport", f.bus.Transport()).
		Msg("Room event forwarder started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("room event subscription on %s closed", f.bus.Topic())
			}
			f.out.BroadcastRaw(msg.Payload)
			metrics.RecordRoomEventConsumed(msg.Metadata.Get("event_type"))
			msg.Ack()
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (f *Forwarder) String() string {
	return "room-event-forwarder"
}
