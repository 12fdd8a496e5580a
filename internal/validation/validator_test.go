// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package validation

import (
	"errors"
	"testing"
)

type sampleRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	RoomCode string `json:"roomCode" validate:"omitempty,roomcode"`
	Media    string `json:"mediaType" validate:"omitempty,mediatype"`
	Limit    int    `json:"limit" validate:"gte=0,lte=200"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name       string
		req        sampleRequest
		wantFields []string
		wantMsg    string
	}{
		{
			name: "valid",
			req:  sampleRequest{Email: "a@example.com", Password: "longenough", RoomCode: "ABC234", Media: "tv"},
		},
		{
			name:       "missing email uses json name",
			req:        sampleRequest{Password: "longenough"},
			wantFields: []string{"email"},
			wantMsg:    "email is required",
		},
		{
			name:       "short password",
			req:        sampleRequest{Email: "a@example.com", Password: "short"},
			wantFields: []string{"password"},
			wantMsg:    "password must be at least 8 characters",
		},
		{
			name:       "bad room code and media type",
			req:        sampleRequest{Email: "a@example.com", Password: "longenough", RoomCode: "abc", Media: "book"},
			wantFields: []string{"roomCode", "mediaType"},
		},
		{
			name:       "limit too large",
			req:        sampleRequest{Email: "a@example.com", Password: "longenough", Limit: 500},
			wantFields: []string{"limit"},
			wantMsg:    "limit must be less than or equal to 200",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.req)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *RequestValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v, want *RequestValidationError", err)
			}
			if len(ve.Fields) != len(tt.wantFields) {
				t.Fatalf("fields = %+v, want %v", ve.Fields, tt.wantFields)
			}
			for i, f := range tt.wantFields {
				if ve.Fields[i].Field != f {
					t.Errorf("field[%d] = %q, want %q", i, ve.Fields[i].Field, f)
				}
			}
			if tt.wantMsg != "" && ve.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", ve.Error(), tt.wantMsg)
			}
		})
	}
}

func TestGetValidatorSingleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator returned different instances")
	}
}
