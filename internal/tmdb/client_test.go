// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package tmdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/reelsync/internal/cache"
	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/models"
)

//nolint:gochecknoinits // init keeps test output quiet
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	cfg := config.TMDBConfig{
		APIKey:       "secret-key",
		BaseURL:      server.URL + "/3",
		ImageBaseURL: "https://image.tmdb.org/t/p",
		Timeout:      2 * time.Second,
		CacheTTL:     time.Minute,
	}
	return NewClient(cfg, cache.New("tmdb", cfg.CacheTTL, 100)), &calls
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"movie/603", "movie/603", false},
		{"/search/tv/", "search/tv", false},
		{"", "", true},
		{"movie/../account", "", true},
		{"movie//603", "", true},
		{"movie/603?x=1", "", true},
		{"movie/%2e%2e", "", true},
	}
	for _, tt := range tests {
		got, err := CleanPath(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("CleanPath(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestGet_InjectsKeyAndCaches(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/3/search/movie" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("api_key"); got != "secret-key" {
			t.Errorf("api_key = %q", got)
		}
		if got := r.URL.Query().Get("query"); got != "alien" {
			t.Errorf("query = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"results":[]}`)
	})

	ctx := context.Background()
	q := url.Values{"query": {"alien"}}
	resp, err := client.Get(ctx, "search/movie", q)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.Cached || string(resp.Body) != `{"results":[]}` || resp.ContentType != "application/json" {
		t.Errorf("resp = %+v", resp)
	}

	resp, err = client.Get(ctx, "/search/movie", q)
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if !resp.Cached {
		t.Error("second response should come from cache")
	}
	if calls.Load() != 1 {
		t.Errorf("upstream calls = %d, want 1", calls.Load())
	}
}

func TestGet_Errors(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"status_message":"The resource you requested could not be found."}`)
	})
	ctx := context.Background()

	if _, err := client.Get(ctx, "movie/1", url.Values{"api_key": {"mine"}}); !errors.Is(err, ErrCallerAPIKey) {
		t.Errorf("caller key = %v", err)
	}
	if _, err := client.Get(ctx, "../etc", nil); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("bad path = %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("rejected requests reached upstream")
	}

	_, err := client.Get(ctx, "movie/999999", nil)
	var upstream *UpstreamError
	if !errors.As(err, &upstream) || upstream.Status != http.StatusNotFound {
		t.Fatalf("err = %v, want UpstreamError 404", err)
	}
	if !strings.Contains(upstream.Body, "could not be found") {
		t.Errorf("body = %q", upstream.Body)
	}

	// 4xx answers do not open the breaker.
	for i := 0; i < 6; i++ {
		_, _ = client.Get(ctx, "movie/999999", nil)
	}
	if got := client.Status().CircuitState; got != "closed" {
		t.Errorf("breaker = %q after 4xx answers", got)
	}
}

func TestGet_BreakerOpensOnServerErrors(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := client.Get(ctx, "movie/603", nil); err == nil {
			t.Fatal("expected upstream error")
		}
	}
	if _, err := client.Get(ctx, "movie/603", nil); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
	if calls.Load() != 5 {
		t.Errorf("upstream calls = %d, want 5", calls.Load())
	}
	if client.Status().CircuitState != "open" {
		t.Errorf("state = %q", client.Status().CircuitState)
	}
}

func TestGet_NotConfigured(t *testing.T) {
	client := NewClient(config.TMDBConfig{BaseURL: "https://api.themoviedb.org/3", Timeout: 10 * time.Second}, nil)
	if _, err := client.Get(context.Background(), "movie/603", nil); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v", err)
	}
	st := client.Status()
	if st.Configured || st.TimeoutSeconds != 10 || st.CircuitState != "closed" {
		t.Errorf("status = %+v", st)
	}
}

func TestGet_Timeout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	client.http.Timeout = 50 * time.Millisecond

	_, err := client.Get(context.Background(), "movie/603", nil)
	if err == nil {
		t.Fatal("expected timeout")
	}
	if strings.Contains(err.Error(), "secret-key") {
		t.Errorf("error leaks the API key: %v", err)
	}
}

func TestPopular(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/3/tv/popular" {
			t.Errorf("path = %q", r.URL.Path)
		}
		switch r.URL.Query().Get("page") {
		case "1":
			_, _ = io.WriteString(w, `{"page":1,"results":[{"id":1399,"name":"Game of Thrones"},{"id":66732,"name":"Stranger Things"}]}`)
		default:
			_, _ = io.WriteString(w, `{"page":2,"results":[{"id":1399,"name":"Game of Thrones"},{"id":0}]}`)
		}
	})

	titles, err := client.Popular(context.Background(), models.MediaTypeTV, 2)
	if err != nil {
		t.Fatalf("Popular: %v", err)
	}
	if len(titles) != 2 || titles[0].DisplayName() != "Game of Thrones" {
		t.Errorf("titles = %+v", titles)
	}
	if _, err := client.Popular(context.Background(), "book", 1); err == nil {
		t.Error("expected error for unknown media type")
	}
}
