// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

// Package seo renders robots.txt and the XML sitemaps.
package seo

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/models"
	"github.com/tomtom215/reelsync/internal/tmdb"
)

// Sitemap file names served at the site root.
const (
	SitemapIndexPath  = "/sitemap.xml"
	SitemapMoviesPath = "/sitemap-movies.xml"
	SitemapTVPath     = "/sitemap-tv.xml"

	sitemapNS    = "http://www.sitemaps.org/schemas/sitemap/0.9"
	popularPages = 5
)

// disallowed paths are private or user-specific.
var disallowed = []string{"/api/", "/watch-together", "/watchlist"}

// StaticPage is one fixed entry of /sitemap.xml.
type StaticPage struct {
	Path       string
	ChangeFreq string
	Priority   float64
}

// StaticPages are the public landing pages.
var StaticPages = []StaticPage{
	{Path: "/", ChangeFreq: "daily", Priority: 1.0},
	{Path: "/movies", ChangeFreq: "daily", Priority: 0.9},
	{Path: "/tv", ChangeFreq: "daily", Priority: 0.9},
	{Path: "/search", ChangeFreq: "weekly", Priority: 0.5},
}

// TitleSource lists popular titles. *tmdb.Client implements it.
type TitleSource interface {
	Configured() bool
	Popular(ctx context.Context, mediaType models.MediaType, pages int) ([]tmdb.Title, error)
}

// Generator builds crawler documents for one public base URL.
type Generator struct {
	baseURL string
	titles  TitleSource
	now     func() time.Time
}

// NewGenerator creates a Generator. titles may be nil, which leaves the
// movie and TV sitemaps empty.
func NewGenerator(baseURL string, titles TitleSource) *Generator {
	return &Generator{
		baseURL: strings.TrimRight(baseURL, "/"),
		titles:  titles,
		now:     time.Now,
	}
}

// Robots returns the robots.txt body.
func (g *Generator) Robots() string {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	for _, p := range disallowed {
		fmt.Fprintf(&b, "Disallow: %s\n", p)
	}
	b.WriteString("\n")
	for _, p := range []string{SitemapIndexPath, SitemapMoviesPath, SitemapTVPath} {
		fmt.Fprintf(&b, "Sitemap: %s%s\n", g.baseURL, p)
	}
	return b.String()
}

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	XMLNS   string     `xml:"xmlns,attr"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// StaticSitemap renders /sitemap.xml.
func (g *Generator) StaticSitemap() ([]byte, error) {
	lastMod := g.now().UTC().Format("2006-01-02")
	entries := make([]urlEntry, 0, len(StaticPages))
	for _, p := range StaticPages {
		entries = append(entries, urlEntry{
			Loc:        g.baseURL + p.Path,
			LastMod:    lastMod,
			ChangeFreq: p.ChangeFreq,
			Priority:   fmt.Sprintf("%.1f", p.Priority),
		})
	}
	return render(entries)
}

// MediaSitemap renders the popular titles of mediaType. TMDB failures are
// logged and produce an empty but valid document.
func (g *Generator) MediaSitemap(ctx context.Context, mediaType models.MediaType) ([]byte, error) {
	entries := []urlEntry{}
	if g.titles != nil && g.titles.Configured() {
		titles, err := g.titles.Popular(ctx, mediaType, popularPages)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("media_type", string(mediaType)).Msg("Failed to load titles for sitemap")
		}
		for _, t := range titles {
			entries = append(entries, urlEntry{
				Loc:        fmt.Sprintf("%s/%s/%d", g.baseURL, mediaType, t.ID),
				ChangeFreq: "weekly",
				Priority:   "0.7",
			})
		}
	}
	return render(entries)
}

func render(entries []urlEntry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(urlSet{XMLNS: sitemapNS, URLs: entries}); err != nil {
		return nil, fmt.Errorf("encode sitemap: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
