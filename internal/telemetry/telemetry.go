// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

// Package telemetry is the error-reporting side channel. Reports never
// affect the response a client sees.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/logging"
)

// Reporter receives server-side failures.
type Reporter interface {
	// CaptureError reports err with optional string tags.
	CaptureError(ctx context.Context, err error, tags map[string]string)

	// Flush waits up to timeout for queued reports.
	Flush(timeout time.Duration) bool

	// Enabled reports whether errors leave the process.
	Enabled() bool
}

// New returns a SentryReporter when a DSN is configured, otherwise a
// LogReporter.
func New(cfg *config.TelemetryConfig, environment, release string) (Reporter, error) {
	if cfg.SentryDSN == "" {
		return LogReporter{}, nil
	}
	return NewSentryReporter(cfg, environment, release)
}

// LogReporter only logs.
type LogReporter struct{}

// CaptureError logs err at error level with the request ids from ctx.
func (LogReporter) CaptureError(ctx context.Context, err error, tags map[string]string) {
	event := logging.Ctx(ctx).Error().Err(err)
	for k, v := range tags {
		event = event.Str(k, v)
	}
	event.Msg("Server error")
}

// Flush is a no-op.
func (LogReporter) Flush(time.Duration) bool { return true }

// Enabled is false.
func (LogReporter) Enabled() bool { return false }

// SentryReporter forwards errors to Sentry and logs them.
type SentryReporter struct {
	hub *sentry.Hub
}

// NewSentryReporter initializes a dedicated Sentry client.
func NewSentryReporter(cfg *config.TelemetryConfig, environment, release string) (*SentryReporter, error) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      environment,
		Release:          release,
		SampleRate:       cfg.SampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}
	return &SentryReporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// CaptureError sends err with request/correlation ids as tags.
func (r *SentryReporter) CaptureError(ctx context.Context, err error, tags map[string]string) {
	LogReporter{}.CaptureError(ctx, err, tags)

	hub := r.hub.Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		if id := logging.RequestIDFromContext(ctx); id != "" {
			scope.SetTag("request_id", id)
		}
		if id := logging.CorrelationIDFromContext(ctx); id != "" {
			scope.SetTag("correlation_id", id)
		}
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}

// Flush drains the Sentry transport.
func (r *SentryReporter) Flush(timeout time.Duration) bool {
	return r.hub.Flush(timeout)
}

// Enabled is true.
func (r *SentryReporter) Enabled() bool { return true }
