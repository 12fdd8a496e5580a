// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

// Package audit records security-relevant events: logins, registrations,
// authorization denials and admin actions.
package audit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// EventType categorizes audit events.
type EventType string

const (
	EventTypeAuthSuccess EventType = "auth.success"
	EventTypeAuthFailure EventType = "auth.failure"
	EventTypeLogout      EventType = "auth.logout"
	EventTypeUserCreated EventType = "user.created"
	EventTypeAuthzDenied EventType = "authz.denied"
	EventTypeAdminAction EventType = "admin.action"
)

// Severity of an event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Outcome of the audited action.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Actor is who performed the action. ID is empty for anonymous callers.
type Actor struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Source is where the request came from.
type Source struct {
	IP        string `json:"ip"`
	UserAgent string `json:"userAgent,omitempty"`
}

// Event is one audit record.
type Event struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Type        EventType       `json:"type"`
	Severity    Severity        `json:"severity"`
	Outcome     Outcome         `json:"outcome"`
	Actor       Actor           `json:"actor"`
	Source      Source          `json:"source"`
	Action      string          `json:"action"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	RequestID   string          `json:"requestId,omitempty"`
}

// QueryFilter narrows Query results. Zero values match everything.
type QueryFilter struct {
	Types   []EventType
	ActorID string
	Outcome Outcome
	Since   time.Time
	Limit   int
}

// Store persists events.
type Store interface {
	Save(ctx context.Context, event *Event) error
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SourceFromRequest extracts the caller's address and user agent. It
// expects chi's RealIP middleware to have rewritten RemoteAddr.
func SourceFromRequest(r *http.Request) Source {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	ua := r.UserAgent()
	if len(ua) > 256 {
		ua = ua[:256]
	}
	return Source{IP: strings.TrimSpace(ip), UserAgent: ua}
}
