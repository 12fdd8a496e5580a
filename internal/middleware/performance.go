// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package middleware

import (
	"net/http"
	"sort"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tomtom215/reelsync/internal/logging"
)

// DefaultSlowThreshold is the latency above which a request is logged.
const DefaultSlowThreshold = time.Second

type sample struct {
	endpoint   string
	durationMS int64
	status     int
}

// EndpointStats aggregates the samples of one "METHOD pattern" endpoint.
// It is shown on the admin system settings page.
type EndpointStats struct {
	Endpoint     string  `json:"endpoint"`
	RequestCount int64   `json:"requestCount"`
	ErrorCount   int64   `json:"errorCount"`
	AvgMS        float64 `json:"avgMs"`
	P50MS        int64   `json:"p50Ms"`
	P95MS        int64   `json:"p95Ms"`
	P99MS        int64   `json:"p99Ms"`
	MaxMS        int64   `json:"maxMs"`
}

// PerformanceMonitor keeps a sliding window of recent request latencies.
type PerformanceMonitor struct {
	mu            sync.RWMutex
	samples       []sample
	next          int
	full          bool
	slowThreshold time.Duration
}

// NewPerformanceMonitor keeps the last window samples. A zero threshold
// uses DefaultSlowThreshold.
func NewPerformanceMonitor(window int, slowThreshold time.Duration) *PerformanceMonitor {
	if window <= 0 {
		window = 1000
	}
	if slowThreshold <= 0 {
		slowThreshold = DefaultSlowThreshold
	}
	return &PerformanceMonitor{
		samples:       make([]sample, window),
		slowThreshold: slowThreshold,
	}
}

func (pm *PerformanceMonitor) record(s sample) {
	pm.mu.Lock()
	pm.samples[pm.next] = s
	pm.next = (pm.next + 1) % len(pm.samples)
	if pm.next == 0 {
		pm.full = true
	}
	pm.mu.Unlock()
}

// Middleware samples every request and warns about slow ones. WebSocket
// sessions are long-lived by nature and are skipped.
func (pm *PerformanceMonitor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") != "" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)

		endpoint := r.Method + " " + RoutePattern(r)
		pm.record(sample{endpoint: endpoint, durationMS: elapsed.Milliseconds(), status: statusOf(ww)})

		if elapsed > pm.slowThreshold {
			logging.Ctx(r.Context()).Warn().
				Str("endpoint", endpoint).
				Int("status", statusOf(ww)).
				Int64("duration_ms", elapsed.Milliseconds()).
				Msg("Slow request detected")
		}
	})
}

// Stats returns per-endpoint aggregates, busiest endpoint first.
func (pm *PerformanceMonitor) Stats() []EndpointStats {
	pm.mu.RLock()
	n := pm.next
	if pm.full {
		n = len(pm.samples)
	}
	grouped := make(map[string][]sample)
	for _, s := range pm.samples[:n] {
		grouped[s.endpoint] = append(grouped[s.endpoint], s)
	}
	pm.mu.RUnlock()

	stats := make([]EndpointStats, 0, len(grouped))
	for endpoint, group := range grouped {
		durations := make([]int64, len(group))
		var sum, errs int64
		for i, s := range group {
			durations[i] = s.durationMS
			sum += s.durationMS
			if s.status >= http.StatusInternalServerError {
				errs++
			}
		}
		sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
		stats = append(stats, EndpointStats{
			Endpoint:     endpoint,
			RequestCount: int64(len(group)),
			ErrorCount:   errs,
			AvgMS:        float64(sum) / float64(len(group)),
			P50MS:        percentile(durations, 0.50),
			P95MS:        percentile(durations, 0.95),
			P99MS:        percentile(durations, 0.99),
			MaxMS:        durations[len(durations)-1],
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].RequestCount != stats[j].RequestCount {
			return stats[i].RequestCount > stats[j].RequestCount
		}
		return stats[i].Endpoint < stats[j].Endpoint
	})
	return stats
}

func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}
