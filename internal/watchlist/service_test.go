// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package watchlist

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/database"
	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/models"
	"github.com/tomtom215/reelsync/internal/validation"
)

//nolint:gochecknoinits // init keeps test output quiet
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

func setup(t *testing.T) (*Service, string) {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	u, err := db.CreateUser(context.Background(), models.NewUser{
		Email: "w@example.com", Name: "W", PasswordHash: "x", Role: models.RoleUser,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return NewService(db), u.ID
}

func TestMediaID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    MediaID
		wantErr bool
	}{
		{`603`, "603", false},
		{`"1399"`, "1399", false},
		{`" 42 "`, "42", false},
		{`null`, "", false},
		{`1.5`, "", true},
		{`{}`, "", true},
	}
	for _, tt := range tests {
		var got MediaID
		err := got.UnmarshalJSON([]byte(tt.in))
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMigrate(t *testing.T) {
	svc, userID := setup(t)
	ctx := context.Background()

	payload := `[
		{"mediaId": 603, "mediaType": "movie", "title": "The Matrix"},
		{"mediaId": "1399", "mediaType": "TV", "name": "Game of Thrones"},
		{"mediaId": 603, "mediaType": "movie", "title": "The Matrix"},
		{"mediaType": "movie", "title": "No id"},
		{"mediaId": 7, "mediaType": "book"}
	]`
	var items []IncomingItem
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		t.Fatalf("decode payload: %v", err)
	}

	res, err := svc.Migrate(ctx, userID, items)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if res.Total != 5 || res.Migrated != 2 || res.Skipped != 3 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Invalid) != 2 {
		t.Errorf("invalid = %v", res.Invalid)
	}

	// Replaying the same payload changes nothing.
	res, err = svc.Migrate(ctx, userID, items)
	if err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if res.Migrated != 0 || res.Skipped != 5 {
		t.Errorf("replay result = %+v", res)
	}

	list, err := svc.List(ctx, userID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list = %+v", list)
	}
	titles := map[string]string{}
	for _, it := range list {
		titles[it.Key()] = it.Title
	}
	if titles["tv:1399"] != "Game of Thrones" || titles["movie:603"] != "The Matrix" {
		t.Errorf("titles = %v", titles)
	}
}

func TestMigrate_Empty(t *testing.T) {
	svc, userID := setup(t)
	res, err := svc.Migrate(context.Background(), userID, nil)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if !reflect.DeepEqual(res, models.MigrationResult{}) {
		t.Errorf("result = %+v", res)
	}
}

func TestAddRemove(t *testing.T) {
	svc, userID := setup(t)
	ctx := context.Background()

	if _, err := svc.Add(ctx, userID, AddRequest{MediaID: "603", MediaType: "podcast"}); err == nil {
		t.Error("expected validation error")
	} else {
		var ve *validation.RequestValidationError
		if !errors.As(err, &ve) {
			t.Errorf("err = %v", err)
		}
	}

	if _, err := svc.Add(ctx, userID, AddRequest{MediaID: "603", MediaType: models.MediaTypeMovie, Title: "Old"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := svc.Add(ctx, userID, AddRequest{MediaID: "603", MediaType: models.MediaTypeMovie, Title: "New"}); err != nil {
		t.Fatalf("Add upsert: %v", err)
	}
	list, _ := svc.List(ctx, userID)
	if len(list) != 1 || list[0].Title != "New" {
		t.Errorf("list = %+v", list)
	}

	if err := svc.Remove(ctx, userID, "603", models.MediaTypeMovie); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := svc.Remove(ctx, userID, "603", models.MediaTypeMovie); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("second Remove = %v", err)
	}
}
