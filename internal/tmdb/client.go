// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

// Package tmdb forwards read-only requests to The Movie Database with the
// server's API key, so the key never reaches the browser.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/reelsync/internal/cache"
	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/metrics"
)

const (
	breakerName = "tmdb"

	// maxBodyBytes caps how much of an upstream response is buffered.
	maxBodyBytes = 4 << 20
)

var (
	ErrNotConfigured = errors.New("TMDB API key is not configured")
	ErrInvalidPath   = errors.New("invalid TMDB path")
	ErrCallerAPIKey  = errors.New("api_key must not be supplied by the caller")
	ErrCircuitOpen   = errors.New("TMDB is temporarily unavailable")
)

var pathPattern = regexp.MustCompile(`^[A-Za-z0-9_\-./]+$`)

// UpstreamError is a non-2xx answer from TMDB.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("TMDB returned %d", e.Status)
}

// Response is a buffered upstream response.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
	Cached      bool
}

// Status describes the proxy for GET /api/tmdb.
type Status struct {
	Configured     bool   `json:"configured"`
	BaseURL        string `json:"baseUrl"`
	ImageBaseURL   string `json:"imageBaseUrl"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
	CircuitState   string `json:"circuitState"`
}

// Client is the TMDB forwarding client.
type Client struct {
	cfg     config.TMDBConfig
	http    *http.Client
	cache   *cache.Cache
	breaker *gobreaker.CircuitBreaker[*Response]
}

// NewClient creates a client. responses may be nil to disable caching.
func NewClient(cfg config.TMDBConfig, responses *cache.Cache) *Client {
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		cache:   responses,
		breaker: newBreaker(),
	}
}

func newBreaker() *gobreaker.CircuitBreaker[*Response] {
	return gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A 4xx is the caller's problem, not an outage.
		IsSuccessful: func(err error) bool {
			var upstream *UpstreamError
			if errors.As(err, &upstream) {
				return upstream.Status < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String())
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.cfg.Configured() }

// Status returns the proxy configuration without the key.
func (c *Client) Status() Status {
	return Status{
		Configured:     c.Configured(),
		BaseURL:        c.cfg.BaseURL,
		ImageBaseURL:   c.cfg.ImageBaseURL,
		TimeoutSeconds: int(c.cfg.Timeout / time.Second),
		CircuitState:   c.breaker.State().String(),
	}
}

// CleanPath validates a caller path such as "movie/603" or "/search/tv".
func CleanPath(p string) (string, error) {
	p = strings.Trim(p, "/")
	if p == "" || !pathPattern.MatchString(p) {
		return "", ErrInvalidPath
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", ErrInvalidPath
		}
	}
	return p, nil
}

// Get forwards GET {BaseURL}/{path}?{query}. Successful responses are
// cached by path and query.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	path, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	if query.Has("api_key") {
		return nil, ErrCallerAPIKey
	}

	key := cache.GenerateKey("tmdb", map[string]string{"path": path, "query": query.Encode()})
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			cached := *v.(*Response)
			cached.Cached = true
			return &cached, nil
		}
	}

	resp, err := c.breaker.Execute(func() (*Response, error) {
		return c.do(ctx, path, query)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordCircuitBreakerRequest(breakerName, "rejected")
		return nil, ErrCircuitOpen
	case err != nil:
		metrics.RecordCircuitBreakerRequest(breakerName, "failure")
		return nil, err
	}
	metrics.RecordCircuitBreakerRequest(breakerName, "success")

	if c.cache != nil {
		c.cache.SetWithTTL(key, resp, c.cfg.CacheTTL)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, path string, query url.Values) (*Response, error) {
	u, err := url.Parse(strings.TrimRight(c.cfg.BaseURL, "/") + "/" + path)
	if err != nil {
		return nil, fmt.Errorf("build TMDB URL: %w", err)
	}
	q := url.Values{}
	for k, vs := range query {
		q[k] = append([]string(nil), vs...)
	}
	q.Set("api_key", c.cfg.APIKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build TMDB request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordTMDBRequest("error", time.Since(start))
		// The URL carries the key; never surface it.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("TMDB request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	metrics.RecordTMDBRequest(fmt.Sprintf("%d", resp.StatusCode), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("read TMDB response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logging.Ctx(ctx).Warn().Int("status", resp.StatusCode).Str("path", path).Msg("TMDB returned an error")
		return nil, &UpstreamError{Status: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
