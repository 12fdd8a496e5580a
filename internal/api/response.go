// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsync/internal/logging"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIMeta is attached to every response.
type APIMeta struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms"`
}

// Error codes.
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeNotImplemented     = "NOT_IMPLEMENTED"
	ErrCodeExternalService    = "EXTERNAL_SERVICE_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// ResponseWriter writes enveloped responses for one request.
type ResponseWriter struct {
	w         http.ResponseWriter
	r         *http.Request
	startTime time.Time
}

// NewResponseWriter starts the query timer.
func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	return &ResponseWriter{w: w, r: r, startTime: time.Now()}
}

func (rw *ResponseWriter) meta() *APIMeta {
	return &APIMeta{
		Timestamp:   time.Now().UTC(),
		QueryTimeMS: time.Since(rw.startTime).Milliseconds(),
	}
}

// Success writes 200 with data.
func (rw *ResponseWriter) Success(data interface{}) {
	rw.write(http.StatusOK, APIResponse{Success: true, Data: data, Meta: rw.meta()})
}

// Created writes 201 with data.
func (rw *ResponseWriter) Created(data interface{}) {
	rw.write(http.StatusCreated, APIResponse{Success: true, Data: data, Meta: rw.meta()})
}

// Error writes an error envelope.
func (rw *ResponseWriter) Error(status int, code, message string) {
	rw.ErrorWithDetails(status, code, message, nil)
}

// ErrorWithDetails writes an error envelope carrying details.
func (rw *ResponseWriter) ErrorWithDetails(status int, code, message string, details interface{}) {
	rw.write(status, APIResponse{
		Success: false,
		Error: &APIError{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: logging.RequestIDFromContext(rw.r.Context()),
		},
		Meta: rw.meta(),
	})
}

func (rw *ResponseWriter) BadRequest(message string) {
	rw.Error(http.StatusBadRequest, ErrCodeBadRequest, message)
}

func (rw *ResponseWriter) Unauthorized(message string) {
	rw.Error(http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func (rw *ResponseWriter) Forbidden(message string) {
	rw.Error(http.StatusForbidden, ErrCodeForbidden, message)
}

func (rw *ResponseWriter) NotFound(message string) {
	rw.Error(http.StatusNotFound, ErrCodeNotFound, message)
}

func (rw *ResponseWriter) Conflict(message string) {
	rw.Error(http.StatusConflict, ErrCodeConflict, message)
}

// NotImplemented answers operations that exist in the API but do nothing yet.
func (rw *ResponseWriter) NotImplemented(message string) {
	rw.Error(http.StatusNotImplemented, ErrCodeNotImplemented, message)
}

// ValidationError writes 400 with per-field details.
func (rw *ResponseWriter) ValidationError(message string, details interface{}) {
	rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidation, message, details)
}

func (rw *ResponseWriter) write(status int, body APIResponse) {
	rw.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.w.Header().Set("Cache-Control", "no-store")
	rw.w.WriteHeader(status)
	if err := json.NewEncoder(rw.w).Encode(body); err != nil {
		logging.Ctx(rw.r.Context()).Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteSuccess is shorthand for NewResponseWriter(w, r).Success(data).
func WriteSuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	NewResponseWriter(w, r).Success(data)
}

// WriteError is shorthand for NewResponseWriter(w, r).Error(...).
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	NewResponseWriter(w, r).Error(status, code, message)
}
