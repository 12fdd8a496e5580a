// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/reelsync/internal/audit"
	"github.com/tomtom215/reelsync/internal/auth"
	"github.com/tomtom215/reelsync/internal/authz"
	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/metrics"
)

// Auth endpoints get a fixed, strict budget regardless of configuration.
const (
	authRateLimitRequests = 5
	authRateLimitWindow   = time.Minute
)

// ChiMiddleware builds the router's CORS and rate limiting middleware from
// the security configuration.
type ChiMiddleware struct {
	cfg  *config.SecurityConfig
	cors func(http.Handler) http.Handler
}

// NewChiMiddleware creates the middleware factory.
func NewChiMiddleware(cfg *config.SecurityConfig) *ChiMiddleware {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	// Credentials are never combined with a wildcard origin.
	allowCredentials := true
	for _, o := range origins {
		if o == "*" {
			allowCredentials = false
			break
		}
	}

	return &ChiMiddleware{
		cfg: cfg,
		cors: cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", auth.SessionHeaderName},
			ExposedHeaders:   []string{"X-Request-ID", "X-Cache"},
			AllowCredentials: allowCredentials,
			MaxAge:           300,
		}),
	}
}

// CORS returns the go-chi/cors handler.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit applies the configured per-IP budget to the general API.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return m.limit("api", m.cfg.RateLimitReqs, m.cfg.RateLimitWindow)
}

// RateLimitAuth applies the strict per-IP budget to credential endpoints.
func (m *ChiMiddleware) RateLimitAuth() func(http.Handler) http.Handler {
	return m.limit("auth", authRateLimitRequests, authRateLimitWindow)
}

func (m *ChiMiddleware) limit(group string, requests int, window time.Duration) func(http.Handler) http.Handler {
	if m.cfg.RateLimitDisabled || requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.RecordRateLimitHit(group)
			logging.Ctx(r.Context()).Warn().Str("group", group).Msg("Rate limit exceeded")
			NewResponseWriter(w, r).Error(http.StatusTooManyRequests, ErrCodeRateLimited, "Too many requests")
		}),
	)
}

// APISecurityHeaders sets the headers every API response carries.
func APISecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// deny is the authz.DenyFunc for every guarded route.
func (h *Handler) deny(w http.ResponseWriter, r *http.Request, d authz.Decision) {
	rw := NewResponseWriter(w, r)
	if d.HTTPStatus() == http.StatusUnauthorized {
		rw.Unauthorized("Authentication required")
		return
	}
	h.audit.LogAuthzDenied(r.Context(), actor(r), audit.SourceFromRequest(r), r.URL.Path, r.Method)
	rw.Forbidden("Forbidden")
}
