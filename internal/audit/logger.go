// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/metrics"
)

const (
	defaultBufferSize = 1000
	defaultRetention  = 90 * 24 * time.Hour
	writeTimeout      = 5 * time.Second
)

// Config tunes the Logger.
type Config struct {
	BufferSize  int
	Retention   time.Duration
	LogToStdout bool
}

// DefaultConfig returns a 1000-event buffer and 90 day retention.
func DefaultConfig() Config {
	return Config{BufferSize: defaultBufferSize, Retention: defaultRetention}
}

// Logger queues events and writes them to the store from Serve. Log never
// blocks the request path; a full buffer drops the event.
type Logger struct {
	cfg    Config
	store  Store
	events chan *Event
	now    func() time.Time
}

// NewLogger creates a Logger. Run Serve under the supervisor to persist
// queued events.
func NewLogger(store Store, cfg Config) *Logger {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	return &Logger{
		cfg:    cfg,
		store:  store,
		events: make(chan *Event, cfg.BufferSize),
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Serve writes queued events until ctx is done, then drains what is left.
func (l *Logger) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case ev := <-l.events:
					l.write(ev)
				default:
					return ctx.Err()
				}
			}
		case ev := <-l.events:
			l.write(ev)
		}
	}
}

// String implements fmt.Stringer for suture.
func (l *Logger) String() string { return "audit-logger" }

func (l *Logger) write(ev *Event) {
	if l.cfg.LogToStdout {
		if data, err := json.Marshal(ev); err == nil {
			logging.Info().RawJSON("event", data).Msg("Audit event")
		}
	}
	if l.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := l.store.Save(ctx, ev); err != nil {
		metrics.RecordAuditEvent(string(ev.Type), "failed")
		logging.Error().Err(err).Str("event_id", ev.ID).Msg("Failed to save audit event")
		return
	}
	metrics.RecordAuditEvent(string(ev.Type), "written")
}

// Log queues ev, filling ID, Timestamp and RequestID when empty.
func (l *Logger) Log(ctx context.Context, ev *Event) {
	if l == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = l.now()
	}
	if ev.Severity == "" {
		ev.Severity = SeverityInfo
	}
	if ev.RequestID == "" {
		ev.RequestID = logging.RequestIDFromContext(ctx)
	}
	select {
	case l.events <- ev:
	default:
		metrics.RecordAuditEvent(string(ev.Type), "dropped")
		logging.Warn().Str("event_type", string(ev.Type)).Msg("Audit buffer full, dropping event")
	}
}

// Query reads persisted events, newest first.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	if l == nil || l.store == nil {
		return []Event{}, nil
	}
	return l.store.Query(ctx, filter)
}

// Purge deletes events older than the retention period. It has the
// signature of a periodic maintenance task.
func (l *Logger) Purge(ctx context.Context) (int, error) {
	if l.store == nil {
		return 0, nil
	}
	n, err := l.store.DeleteBefore(ctx, l.now().Add(-l.cfg.Retention))
	if err != nil {
		return 0, fmt.Errorf("purge audit events: %w", err)
	}
	return int(n), nil
}

// LogAuthSuccess records a successful login.
func (l *Logger) LogAuthSuccess(ctx context.Context, actor Actor, source Source) {
	l.Log(ctx, &Event{
		Type:        EventTypeAuthSuccess,
		Outcome:     OutcomeSuccess,
		Actor:       actor,
		Source:      source,
		Action:      "login",
		Description: "User logged in",
	})
}

// LogAuthFailure records a rejected login. email is what the caller typed.
func (l *Logger) LogAuthFailure(ctx context.Context, email string, source Source, reason string) {
	l.Log(ctx, &Event{
		Type:        EventTypeAuthFailure,
		Severity:    SeverityWarning,
		Outcome:     OutcomeFailure,
		Actor:       Actor{Email: email},
		Source:      source,
		Action:      "login",
		Description: "Login failed: " + reason,
	})
}

// LogLogout records a logout.
func (l *Logger) LogLogout(ctx context.Context, actor Actor, source Source) {
	l.Log(ctx, &Event{
		Type:        EventTypeLogout,
		Outcome:     OutcomeSuccess,
		Actor:       actor,
		Source:      source,
		Action:      "logout",
		Description: "User logged out",
	})
}

// LogUserCreated records a registration.
func (l *Logger) LogUserCreated(ctx context.Context, actor Actor, source Source) {
	l.Log(ctx, &Event{
		Type:        EventTypeUserCreated,
		Outcome:     OutcomeSuccess,
		Actor:       actor,
		Source:      source,
		Action:      "register",
		Description: "Account created with role " + actor.Role,
	})
}

// LogAuthzDenied records a guard rejection of an authenticated caller.
func (l *Logger) LogAuthzDenied(ctx context.Context, actor Actor, source Source, resource, action string) {
	l.Log(ctx, &Event{
		Type:        EventTypeAuthzDenied,
		Severity:    SeverityWarning,
		Outcome:     OutcomeFailure,
		Actor:       actor,
		Source:      source,
		Action:      action,
		Description: fmt.Sprintf("Access to %s denied", resource),
	})
}

// LogAdminAction records an admin endpoint call with optional metadata.
func (l *Logger) LogAdminAction(ctx context.Context, actor Actor, source Source, action, description string, metadata map[string]interface{}) {
	ev := &Event{
		Type:        EventTypeAdminAction,
		Outcome:     OutcomeSuccess,
		Actor:       actor,
		Source:      source,
		Action:      action,
		Description: description,
	}
	if len(metadata) > 0 {
		if raw, err := json.Marshal(metadata); err == nil {
			ev.Metadata = raw
		}
	}
	l.Log(ctx, ev)
}
