// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

/*
Package middleware holds the infrastructure middleware of the HTTP stack.

All middleware uses the chi signature func(http.Handler) http.Handler and is
installed by internal/api:

	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(perf.Middleware)
	r.Use(middleware.Compression)

PrometheusMetrics and PerformanceMonitor label requests with the chi route
pattern, so room codes and ids never become label values. Both must run
inside the chi router for the pattern to be available.
*/
package middleware
