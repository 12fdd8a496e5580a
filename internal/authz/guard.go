// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package authz

import (
	"net/http"

	"github.com/tomtom215/reelsync/internal/auth"
	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/metrics"
)

// Decision is the outcome of a guard check.
type Decision int

const (
	// DecisionAllow lets the request through.
	DecisionAllow Decision = iota

	// DecisionUnauthenticated means there is no identity (401).
	DecisionUnauthenticated

	// DecisionForbidden means the identity lacks permission (403).
	DecisionForbidden
)

// String implements fmt.Stringer.
func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionUnauthenticated:
		return "unauthenticated"
	case DecisionForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Allowed reports whether d is DecisionAllow.
func (d Decision) Allowed() bool { return d == DecisionAllow }

// HTTPStatus maps the decision to a response status.
func (d Decision) HTTPStatus() int {
	switch d {
	case DecisionAllow:
		return http.StatusOK
	case DecisionUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusForbidden
	}
}

// Guard evaluates subject against the policy. A nil subject is always
// DecisionUnauthenticated; enforcement errors fail closed as DecisionForbidden.
func (e *Enforcer) Guard(subject *auth.AuthSubject, object, action string) Decision {
	if subject == nil {
		metrics.RecordAuthzDecision("anonymous", object, action, DecisionUnauthenticated.String())
		return DecisionUnauthenticated
	}

	role := string(subject.Role)
	allowed, err := e.Enforce(role, object, action)
	if err != nil {
		logging.Error().Err(err).Str("role", role).Str("object", object).Msg("Authorization error")
		allowed = false
	}

	d := DecisionForbidden
	if allowed {
		d = DecisionAllow
	}
	metrics.RecordAuthzDecision(role, object, action, d.String())
	return d
}

// DenyFunc writes the response for a rejected request.
type DenyFunc func(w http.ResponseWriter, r *http.Request, d Decision)

// Require returns middleware that runs Guard on the request's subject and
// calls deny unless the decision is allow.
func (e *Enforcer) Require(object, action string, deny DenyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := e.Guard(auth.GetAuthSubject(r.Context()), object, action)
			if !d.Allowed() {
				deny(w, r, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin guards the admin surface.
func (e *Enforcer) RequireAdmin(deny DenyFunc) func(http.Handler) http.Handler {
	return e.Require(ObjectAdmin, "*", deny)
}
