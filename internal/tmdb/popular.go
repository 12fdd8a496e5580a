// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package tmdb

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsync/internal/models"
)

// Title is the slice of a TMDB list entry the sitemaps need.
type Title struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Name  string `json:"name"`
}

// DisplayName returns the movie title or the show name.
func (t Title) DisplayName() string {
	if t.Title != "" {
		return t.Title
	}
	return t.Name
}

type listPage struct {
	Page    int     `json:"page"`
	Results []Title `json:"results"`
}

// Popular returns up to pages pages of the popular list for mediaType.
// Pages go through Get, so they share the response cache.
func (c *Client) Popular(ctx context.Context, mediaType models.MediaType, pages int) ([]Title, error) {
	if !mediaType.Valid() {
		return nil, fmt.Errorf("unknown media type %q", mediaType)
	}
	var out []Title
	seen := make(map[int]bool)
	for page := 1; page <= pages; page++ {
		resp, err := c.Get(ctx, string(mediaType)+"/popular", url.Values{"page": {strconv.Itoa(page)}})
		if err != nil {
			return nil, err
		}
		var lp listPage
		if err := json.Unmarshal(resp.Body, &lp); err != nil {
			return nil, fmt.Errorf("decode %s popular page %d: %w", mediaType, page, err)
		}
		for _, t := range lp.Results {
			if t.ID > 0 && !seen[t.ID] {
				seen[t.ID] = true
				out = append(out, t)
			}
		}
	}
	return out, nil
}
