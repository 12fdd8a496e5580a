// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsync/internal/models"
	"github.com/tomtom215/reelsync/internal/watchlist"
)

// maxBodyBytes bounds JSON request bodies. The largest legitimate body is a
// watchlist migration.
const maxBodyBytes = 1 << 20

// decodeJSON reads r's body into v. Any syntax or type error, or trailing
// data, is reported as ErrInvalidBody.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: unexpected data after JSON value", ErrInvalidBody)
	}
	return nil
}

// roomCodeParam reads and normalizes the {code} URL parameter.
func roomCodeParam(r *http.Request) (string, bool) {
	code := models.NormalizeRoomCode(chi.URLParam(r, "code"))
	return code, models.ValidRoomCode(code)
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,min=1,max=64"`
}

func (req *registerRequest) normalize() {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type createRoomRequest struct {
	Title string `json:"title" validate:"max=100"`
}

type inviteRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

type postChatRequest struct {
	RoomCode string `json:"roomCode" validate:"required,roomcode"`
	Body     string `json:"body"`
}

// migrateRequest keeps items raw so a non-array is reported as 400 before
// any element is decoded.
type migrateRequest struct {
	Items json.RawMessage `json:"items"`
}

func (req migrateRequest) decodeItems() ([]watchlist.IncomingItem, error) {
	raw := strings.TrimSpace(string(req.Items))
	if !strings.HasPrefix(raw, "[") {
		return nil, fmt.Errorf("%w: items must be an array", ErrInvalidBody)
	}
	var items []watchlist.IncomingItem
	if err := json.Unmarshal(req.Items, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return items, nil
}
