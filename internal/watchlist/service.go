// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

// Package watchlist manages saved media per user, including the one-time
// import of items the browser kept in local storage.
package watchlist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/models"
	"github.com/tomtom215/reelsync/internal/validation"
)

// ErrItemNotFound is returned by Remove for an unknown item.
var ErrItemNotFound = errors.New("watchlist item not found")

const maxMediaIDLength = 64

// Store is the persistence the service needs. *database.DB implements it.
type Store interface {
	MigrateWatchlist(ctx context.Context, userID string, items []models.WatchlistItem) (migrated, skipped int, err error)
	AddWatchlistItem(ctx context.Context, item models.WatchlistItem) error
	RemoveWatchlistItem(ctx context.Context, userID, mediaID string, mediaType models.MediaType) (bool, error)
	ListWatchlist(ctx context.Context, userID string) ([]models.WatchlistItem, error)
}

// MediaID accepts a JSON string or number. Browsers store TMDB ids as
// numbers.
type MediaID string

// UnmarshalJSON implements json.Unmarshaler.
func (m *MediaID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*m = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*m = MediaID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("media id must be a string or number: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("media id must be an integer: %w", err)
	}
	*m = MediaID(n.String())
	return nil
}

// IncomingItem is one entry of a migration payload. TV entries may carry
// name instead of title.
type IncomingItem struct {
	MediaID    MediaID    `json:"mediaId"`
	MediaType  string     `json:"mediaType"`
	Title      string     `json:"title"`
	Name       string     `json:"name"`
	PosterPath string     `json:"posterPath"`
	AddedAt    *time.Time `json:"addedAt"`
}

// AddRequest is the body of a single watchlist add.
type AddRequest struct {
	MediaID    string           `json:"mediaId" validate:"required,max=64"`
	MediaType  models.MediaType `json:"mediaType" validate:"required,mediatype"`
	Title      string           `json:"title" validate:"max=300"`
	PosterPath string           `json:"posterPath" validate:"max=300"`
}

// Service wraps the watchlist store.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a Service.
func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Migrate imports items for userID. Invalid entries are counted as skipped
// and described in Invalid; duplicates of existing items are skipped.
func (s *Service) Migrate(ctx context.Context, userID string, incoming []IncomingItem) (models.MigrationResult, error) {
	result := models.MigrationResult{Total: len(incoming)}

	valid := make([]models.WatchlistItem, 0, len(incoming))
	now := s.now()
	for i, in := range incoming {
		item, reason := s.normalize(userID, in, now)
		if reason != "" {
			result.Skipped++
			result.Invalid = append(result.Invalid, fmt.Sprintf("items[%d]: %s", i, reason))
			continue
		}
		valid = append(valid, item)
	}

	if len(valid) > 0 {
		migrated, skipped, err := s.store.MigrateWatchlist(ctx, userID, valid)
		if err != nil {
			return models.MigrationResult{}, err
		}
		result.Migrated = migrated
		result.Skipped += skipped
	}

	logging.Ctx(ctx).Info().
		Int("total", result.Total).
		Int("migrated", result.Migrated).
		Int("skipped", result.Skipped).
		Msg("Watchlist migrated")
	return result, nil
}

func (s *Service) normalize(userID string, in IncomingItem, now time.Time) (models.WatchlistItem, string) {
	mediaID := string(in.MediaID)
	if mediaID == "" {
		return models.WatchlistItem{}, "missing media id"
	}
	if len(mediaID) > maxMediaIDLength {
		return models.WatchlistItem{}, "media id too long"
	}
	mediaType := models.MediaType(strings.ToLower(strings.TrimSpace(in.MediaType)))
	if !mediaType.Valid() {
		return models.WatchlistItem{}, fmt.Sprintf("invalid media type %q", in.MediaType)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = strings.TrimSpace(in.Name)
	}
	addedAt := now
	if in.AddedAt != nil && !in.AddedAt.IsZero() && in.AddedAt.Before(now) {
		addedAt = in.AddedAt.UTC()
	}
	return models.WatchlistItem{
		UserID:     userID,
		MediaID:    mediaID,
		MediaType:  mediaType,
		Title:      title,
		PosterPath: strings.TrimSpace(in.PosterPath),
		AddedAt:    addedAt,
	}, ""
}

// List returns the user's items, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]models.WatchlistItem, error) {
	return s.store.ListWatchlist(ctx, userID)
}

// Add upserts one item.
func (s *Service) Add(ctx context.Context, userID string, req AddRequest) (*models.WatchlistItem, error) {
	if err := validation.ValidateStruct(&req); err != nil {
		return nil, err
	}
	item := models.WatchlistItem{
		UserID:     userID,
		MediaID:    strings.TrimSpace(req.MediaID),
		MediaType:  req.MediaType,
		Title:      strings.TrimSpace(req.Title),
		PosterPath: strings.TrimSpace(req.PosterPath),
		AddedAt:    s.now(),
	}
	if err := s.store.AddWatchlistItem(ctx, item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Remove deletes one item or returns ErrItemNotFound.
func (s *Service) Remove(ctx context.Context, userID, mediaID string, mediaType models.MediaType) error {
	removed, err := s.store.RemoveWatchlistItem(ctx, userID, mediaID, mediaType)
	if err != nil {
		return err
	}
	if !removed {
		return ErrItemNotFound
	}
	return nil
}
