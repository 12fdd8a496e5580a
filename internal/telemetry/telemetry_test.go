// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package telemetry

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/logging"
)

func TestNew_SelectsReporter(t *testing.T) {
	r, err := New(&config.TelemetryConfig{}, "test", "dev")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := r.(LogReporter); !ok || r.Enabled() {
		t.Errorf("empty DSN reporter = %T enabled=%v", r, r.Enabled())
	}

	r, err = New(&config.TelemetryConfig{SentryDSN: "https://public@example.invalid/1", SampleRate: 1}, "test", "dev")
	if err != nil {
		t.Fatalf("New with DSN: %v", err)
	}
	if !r.Enabled() {
		t.Error("sentry reporter should be enabled")
	}

	if _, err := New(&config.TelemetryConfig{SentryDSN: "not a dsn"}, "test", "dev"); err == nil {
		t.Error("expected error for malformed DSN")
	}
}

func TestLogReporter_CaptureError(t *testing.T) {
	var buf bytes.Buffer
	prev := logging.Logger()
	logging.SetLogger(logging.NewTestLogger(&buf))
	t.Cleanup(func() { logging.SetLogger(prev) })

	ctx := logging.ContextWithRequestID(context.Background(), "req-42")
	LogReporter{}.CaptureError(ctx, errors.New("boom"), map[string]string{"route": "/api/x"})

	out := buf.String()
	for _, want := range []string{"boom", "req-42", `"route":"/api/x"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
	if !(LogReporter{}).Flush(time.Millisecond) {
		t.Error("Flush should report success")
	}
}
