// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tomtom215/reelsync/internal/metrics"
)

// unmatchedRoute labels requests no route matched, so probes for random
// paths cannot grow the label set.
const unmatchedRoute = "unmatched"

// PrometheusMetrics records request count, latency and in-flight gauge.
// The endpoint label is the chi route pattern ("/api/watch-room/{code}"),
// never the raw path.
func PrometheusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		metrics.RecordAPIRequest(r.Method, RoutePattern(r), strconv.Itoa(statusOf(ww)), time.Since(start))
	})
}

// RoutePattern returns the matched chi pattern, valid once the router has
// served r.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return unmatchedRoute
}

// statusOf treats a handler that never wrote a header as 200.
func statusOf(ww chimw.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}
