// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package roomevents

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/metrics"
)

// Transport names reported in system info.
const (
	TransportGoChannel = "gochannel"
	TransportNATS      = "nats"
)

const breakerName = "roomevents"

// ErrBusClosed is returned by Publish after Close.
var ErrBusClosed = errors.New("room event bus is closed")

// Bus publishes and subscribes room events on one topic. Without a NATS
// URL both sides share an in-process GoChannel.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	breaker    *gobreaker.CircuitBreaker[interface{}]
	topic      string
	transport  string

	mu     sync.RWMutex
	closed bool
}

// NewBus connects the configured transport.
func NewBus(cfg *config.EventsConfig, logger watermill.LoggerAdapter) (*Bus, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	b := &Bus{topic: topic, breaker: newBreaker()}

	if cfg.NATSURL == "" {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger)
		b.publisher, b.subscriber, b.transport = ch, ch, TransportGoChannel
		return b, nil
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.NATSURL,
		NatsOptions: natsOptions(cfg, logger),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}

	// No queue group: every instance needs every event for its own clients.
	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.NATSURL,
		SubscribersCount: 1,
		CloseTimeout:     5 * time.Second,
		AckWaitTimeout:   10 * time.Second,
		NatsOptions:      natsOptions(cfg, logger),
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}

	b.publisher, b.subscriber, b.transport = pub, sub, TransportNATS
	return b, nil
}

func natsOptions(cfg *config.EventsConfig, logger watermill.LoggerAdapter) []natsgo.Option {
	return []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
}

func newBreaker() *gobreaker.CircuitBreaker[interface{}] {
	return gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String())
		},
	})
}

// Topic returns the topic events are published on.
func (b *Bus) Topic() string { return b.topic }

// Transport returns TransportGoChannel or TransportNATS.
func (b *Bus) Transport() string { return b.transport }

// BreakerState returns the publish breaker state.
func (b *Bus) BreakerState() string { return b.breaker.State().String() }

// Publish encodes ev and sends it through the circuit breaker.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal room event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_type", string(ev.Type))
	msg.SetContext(ctx)

	_, err = b.breaker.Execute(func() (interface{}, error) {
		return nil, b.publisher.Publish(b.topic, msg)
	})
	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.RecordCircuitBreakerRequest(breakerName, result)
	metrics.RecordRoomEventPublished(string(ev.Type), err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// Subscribe returns the event stream. It closes when ctx is done or the
// bus is closed.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.subscriber.Subscribe(ctx, b.topic)
}

// Close shuts down both sides. Safe to call more than once.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	err := b.publisher.Close()
	if b.transport == TransportNATS {
		err = errors.Join(err, b.subscriber.Close())
	}
	return err
}
