// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

// histogramSnapshot reads a histogram child through its protobuf form.
func histogramSnapshot(t *testing.T, h prometheus.Observer) *io_prometheus_client.Histogram {
	t.Helper()
	m, ok := h.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T is not a prometheus.Metric", h)
	}
	var out io_prometheus_client.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if out.GetHistogram() == nil {
		t.Fatal("metric has no histogram")
	}
	return out.GetHistogram()
}

func TestRecordAPIRequest_Histogram(t *testing.T) {
	observer := APIRequestDuration.WithLabelValues("POST", "/api/histogram-test")
	before := histogramSnapshot(t, observer)

	RecordAPIRequest("POST", "/api/histogram-test", "201", 30*time.Millisecond)
	RecordAPIRequest("POST", "/api/histogram-test", "201", 2*time.Second)

	after := histogramSnapshot(t, observer)
	if d := after.GetSampleCount() - before.GetSampleCount(); d != 2 {
		t.Errorf("sample count grew by %d, want 2", d)
	}
	if d := after.GetSampleSum() - before.GetSampleSum(); d < 2.029 || d > 2.031 {
		t.Errorf("sample sum grew by %v, want 2.03", d)
	}

	// 30ms lands in the 0.05 bucket, 2s only from the 2.5 bucket up.
	for _, b := range after.GetBucket() {
		switch b.GetUpperBound() {
		case 0.025:
			if b.GetCumulativeCount() != 0 {
				t.Errorf("bucket 0.025 = %d, want 0", b.GetCumulativeCount())
			}
		case 0.05, 1:
			if b.GetCumulativeCount() != 1 {
				t.Errorf("bucket %v = %d, want 1", b.GetUpperBound(), b.GetCumulativeCount())
			}
		case 2.5:
			if b.GetCumulativeCount() != 2 {
				t.Errorf("bucket 2.5 = %d, want 2", b.GetCumulativeCount())
			}
		}
	}

	var labels io_prometheus_client.Metric
	_ = observer.(prometheus.Metric).Write(&labels)
	got := map[string]string{}
	for _, lp := range labels.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	if got["method"] != "POST" || got["endpoint"] != "/api/histogram-test" {
		t.Errorf("labels = %v", got)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/test", "200"))
	RecordAPIRequest("GET", "/api/test", "200", 15*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/test", "200"))
	if after-before != 1 {
		t.Errorf("api_requests_total delta = %v, want 1", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("after inc = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("after dec = %v, want %v", got, before)
	}
}

func TestRecordCircuitBreakerTransition(t *testing.T) {
	tests := []struct {
		to   string
		want float64
	}{
		{"open", 2},
		{"half-open", 1},
		{"closed", 0},
	}
	for _, tt := range tests {
		t.Run(tt.to, func(t *testing.T) {
			RecordCircuitBreakerTransition("test-breaker", "closed", tt.to)
			if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("test-breaker")); got != tt.want {
				t.Errorf("state gauge = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecordRoomEventPublished(t *testing.T) {
	okBefore := testutil.ToFloat64(RoomEventsPublished.WithLabelValues("test.event", "success"))
	failBefore := testutil.ToFloat64(RoomEventsPublished.WithLabelValues("test.event", "failure"))

	RecordRoomEventPublished("test.event", nil)
	RecordRoomEventPublished("test.event", errors.New("nats down"))

	if d := testutil.ToFloat64(RoomEventsPublished.WithLabelValues("test.event", "success")) - okBefore; d != 1 {
		t.Errorf("success delta = %v", d)
	}
	if d := testutil.ToFloat64(RoomEventsPublished.WithLabelValues("test.event", "failure")) - failBefore; d != 1 {
		t.Errorf("failure delta = %v", d)
	}
}

func TestRecordCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(CacheHits.WithLabelValues("test"))
	misses := testutil.ToFloat64(CacheMisses.WithLabelValues("test"))
	RecordCacheLookup("test", true)
	RecordCacheLookup("test", false)
	RecordCacheLookup("test", false)
	if d := testutil.ToFloat64(CacheHits.WithLabelValues("test")) - hits; d != 1 {
		t.Errorf("hits delta = %v", d)
	}
	if d := testutil.ToFloat64(CacheMisses.WithLabelValues("test")) - misses; d != 2 {
		t.Errorf("misses delta = %v", d)
	}
}
