// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/reelsync/internal/auth"
	"github.com/tomtom215/reelsync/internal/database"
	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/tmdb"
	"github.com/tomtom215/reelsync/internal/validation"
	"github.com/tomtom215/reelsync/internal/watchlist"
	"github.com/tomtom215/reelsync/internal/watchroom"
	ws "github.com/tomtom215/reelsync/internal/websocket"
)

// ErrInvalidBody is returned for bodies that are not the expected JSON.
var ErrInvalidBody = errors.New("request body must be valid JSON")

// apiFailure is the client-facing form of an error.
type apiFailure struct {
	status  int
	code    string
	message string
	details interface{}
}

// classify maps domain errors onto the error taxonomy. Anything it does not
// recognize is a 500 with a generic message.
func classify(err error) apiFailure {
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		return apiFailure{http.StatusBadRequest, ErrCodeValidation, "Validation failed", verr.Details()}
	}
	var upstream *tmdb.UpstreamError
	if errors.As(err, &upstream) {
		return apiFailure{http.StatusBadGateway, ErrCodeExternalService, "TMDB request failed",
			map[string]interface{}{"upstreamStatus": upstream.Status}}
	}

	switch {
	case errors.Is(err, ErrInvalidBody):
		return apiFailure{http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil}
	case errors.Is(err, database.ErrEmailTaken):
		return apiFailure{http.StatusConflict, ErrCodeConflict, "Email is already registered", nil}
	case errors.Is(err, watchroom.ErrRoomNotFound):
		return apiFailure{http.StatusNotFound, ErrCodeNotFound, "Room not found", nil}
	case errors.Is(err, watchroom.ErrUserNotFound):
		return apiFailure{http.StatusNotFound, ErrCodeNotFound, "User not found", nil}
	case errors.Is(err, database.ErrNotificationNotFound):
		return apiFailure{http.StatusNotFound, ErrCodeNotFound, "Notification not found", nil}
	case errors.Is(err, watchlist.ErrItemNotFound):
		return apiFailure{http.StatusNotFound, ErrCodeNotFound, "Watchlist item not found", nil}
	case errors.Is(err, watchroom.ErrRoomClosed):
		return apiFailure{http.StatusConflict, ErrCodeConflict, "Room is closed", nil}
	case errors.Is(err, watchroom.ErrNotParticipant):
		return apiFailure{http.StatusForbidden, ErrCodeForbidden, "You are not in this room", nil}
	case errors.Is(err, watchroom.ErrEmptyMessage),
		errors.Is(err, watchroom.ErrMessageTooLong),
		errors.Is(err, watchroom.ErrSelfInvite),
		errors.Is(err, tmdb.ErrInvalidPath),
		errors.Is(err, tmdb.ErrCallerAPIKey),
		errors.Is(err, auth.ErrPasswordTooLong):
		return apiFailure{http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil}
	case errors.Is(err, tmdb.ErrNotConfigured), errors.Is(err, tmdb.ErrCircuitOpen):
		return apiFailure{http.StatusServiceUnavailable, ErrCodeServiceUnavailable, err.Error(), nil}
	}
	return apiFailure{http.StatusInternalServerError, ErrCodeInternal, "An internal error occurred", nil}
}

// fail writes the response for err. Server errors are logged and sent to
// the telemetry reporter first.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	f := classify(err)
	if f.status >= http.StatusInternalServerError {
		h.reporter.CaptureError(r.Context(), err, map[string]string{
			"route":  r.Method + " " + r.URL.Path,
			"status": http.StatusText(f.status),
		})
	} else {
		logging.Ctx(r.Context()).Debug().Err(err).Int("status", f.status).Msg("Request rejected")
	}
	NewResponseWriter(w, r).ErrorWithDetails(f.status, f.code, f.message, f.details)
}

// wsError is the WebSocket counterpart of fail.
func (h *Handler) wsError(err error) ws.ErrorData {
	f := classify(err)
	if f.status >= http.StatusInternalServerError {
		h.reporter.CaptureError(context.Background(), err, map[string]string{"route": "websocket"})
	}
	return ws.ErrorData{Code: f.code, Message: f.message}
}
