// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package seo

import (
	"context"
	"encoding/xml"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/reelsync/internal/models"
	"github.com/tomtom215/reelsync/internal/tmdb"
)

func TestRobots(t *testing.T) {
	g := NewGenerator("https://reelsync.example/", nil)
	got := g.Robots()

	want := `User-agent: *
Allow: /
Disallow: /api/
Disallow: /watch-together
Disallow: /watchlist

Sitemap: https://reelsync.example/sitemap.xml
Sitemap: https://reelsync.example/sitemap-movies.xml
Sitemap: https://reelsync.example/sitemap-tv.xml
`
	if got != want {
		t.Errorf("Robots() =\n%s\nwant\n%s", got, want)
	}
	if n := strings.Count(got, "Disallow:"); n != 3 {
		t.Errorf("Disallow count = %d", n)
	}
}

func decode(t *testing.T, body []byte) urlSet {
	t.Helper()
	if !strings.HasPrefix(string(body), xml.Header) {
		t.Error("missing XML header")
	}
	var set urlSet
	if err := xml.Unmarshal(body, &set); err != nil {
		t.Fatalf("unmarshal sitemap: %v", err)
	}
	if set.XMLNS != sitemapNS {
		t.Errorf("xmlns = %q", set.XMLNS)
	}
	return set
}

func TestStaticSitemap(t *testing.T) {
	g := NewGenerator("https://reelsync.example", nil)
	g.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	body, err := g.StaticSitemap()
	if err != nil {
		t.Fatalf("StaticSitemap: %v", err)
	}
	set := decode(t, body)
	if len(set.URLs) != 4 {
		t.Fatalf("urls = %+v", set.URLs)
	}
	tests := []struct {
		loc, freq, prio string
	}{
		{"https://reelsync.example/", "daily", "1.0"},
		{"https://reelsync.example/movies", "daily", "0.9"},
		{"https://reelsync.example/tv", "daily", "0.9"},
		{"https://reelsync.example/search", "weekly", "0.5"},
	}
	for i, tt := range tests {
		u := set.URLs[i]
		if u.Loc != tt.loc || u.ChangeFreq != tt.freq || u.Priority != tt.prio || u.LastMod != "2026-03-01" {
			t.Errorf("url[%d] = %+v", i, u)
		}
	}
}

type fakeTitles struct {
	configured bool
	titles     []tmdb.Title
	err        error
}

func (f fakeTitles) Configured() bool { return f.configured }

func (f fakeTitles) Popular(context.Context, models.MediaType, int) ([]tmdb.Title, error) {
	return f.titles, f.err
}

func TestMediaSitemap(t *testing.T) {
	tests := []struct {
		name   string
		source TitleSource
		want   []string
	}{
		{"no source", nil, nil},
		{"not configured", fakeTitles{titles: []tmdb.Title{{ID: 1}}}, nil},
		{"upstream failure", fakeTitles{configured: true, err: errors.New("boom")}, nil},
		{"titles", fakeTitles{configured: true, titles: []tmdb.Title{{ID: 603}, {ID: 550}}}, []string{
			"https://reelsync.example/movie/603",
			"https://reelsync.example/movie/550",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator("https://reelsync.example", tt.source)
			body, err := g.MediaSitemap(context.Background(), models.MediaTypeMovie)
			if err != nil {
				t.Fatalf("MediaSitemap: %v", err)
			}
			set := decode(t, body)
			if len(set.URLs) != len(tt.want) {
				t.Fatalf("urls = %+v", set.URLs)
			}
			for i, loc := range tt.want {
				if set.URLs[i].Loc != loc {
					t.Errorf("url[%d] = %q, want %q", i, set.URLs[i].Loc, loc)
				}
			}
		})
	}
}
