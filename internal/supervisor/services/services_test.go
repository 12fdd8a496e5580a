// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package services

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/reelsync/internal/logging"
)

//nolint:gochecknoinits // init keeps test output quiet
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

var (
	_ suture.Service = (*HTTPServerService)(nil)
	_ suture.Service = (*WebSocketHubService)(nil)
	_ suture.Service = (*PeriodicService)(nil)
)

type fakeServer struct {
	listenErr   error
	shutdownErr error
	stop        chan struct{}
	shutdowns   atomic.Int32
}

func newFakeServer() *fakeServer { return &fakeServer{stop: make(chan struct{})} }

func (f *fakeServer) ListenAndServe() error {
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	close(f.stop)
	return f.shutdownErr
}

func TestHTTPServerService(t *testing.T) {
	t.Run("graceful shutdown", func(t *testing.T) {
		srv := newFakeServer()
		svc := NewHTTPServerService(srv, time.Second)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()

		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve = %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return")
		}
		if srv.shutdowns.Load() != 1 {
			t.Errorf("Shutdown calls = %d", srv.shutdowns.Load())
		}
	})

	t.Run("listen failure", func(t *testing.T) {
		srv := newFakeServer()
		srv.listenErr = &net.OpError{Op: "listen", Err: errors.New("address already in use")}
		err := NewHTTPServerService(srv, 0).Serve(context.Background())
		if err == nil || !errors.Is(err, srv.listenErr) {
			t.Errorf("Serve = %v", err)
		}
	})

	t.Run("shutdown failure", func(t *testing.T) {
		srv := newFakeServer()
		srv.shutdownErr = context.DeadlineExceeded
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := NewHTTPServerService(srv, time.Second).Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve = %v", err)
		}
	})

	t.Run("default timeout", func(t *testing.T) {
		if svc := NewHTTPServerService(newFakeServer(), -1); svc.shutdownTimeout != 10*time.Second {
			t.Errorf("timeout = %v", svc.shutdownTimeout)
		}
	})
}

type fakeHub struct{ runs atomic.Int32 }

func (h *fakeHub) RunWithContext(ctx context.Context) error {
	h.runs.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestWebSocketHubService(t *testing.T) {
	hub := &fakeHub{}
	svc := NewWebSocketHubService(hub)
	if svc.String() != "websocket-hub" {
		t.Errorf("String = %q", svc.String())
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve = %v", err)
	}
	if hub.runs.Load() != 1 {
		t.Errorf("runs = %d", hub.runs.Load())
	}
}

type fakeSessions struct{ calls atomic.Int32 }

func (f *fakeSessions) CleanupExpired(context.Context) (int, error) {
	if f.calls.Add(1) == 1 {
		return 0, errors.New("badger: closed")
	}
	return 3, nil
}

type fakeCache struct{ calls atomic.Int32 }

func (f *fakeCache) Cleanup() int {
	f.calls.Add(1)
	return 1
}

func TestPeriodicServices(t *testing.T) {
	sessions := &fakeSessions{}
	cache := &fakeCache{}
	svcs := []*PeriodicService{
		NewSessionCleanupService(sessions, 10*time.Millisecond),
		NewCacheCleanupService("tmdb-cache-cleanup", cache, 10*time.Millisecond),
	}
	if svcs[0].String() != "session-cleanup" || svcs[1].String() != "tmdb-cache-cleanup" {
		t.Errorf("names = %q %q", svcs[0], svcs[1])
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, len(svcs))
	for _, svc := range svcs {
		go func(s *PeriodicService) { done <- s.Serve(ctx) }(svc)
	}

	// A failed run does not stop the loop.
	deadline := time.Now().Add(2 * time.Second)
	for (sessions.calls.Load() < 2 || cache.calls.Load() < 2) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	for range svcs {
		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v", err)
		}
	}
	if sessions.calls.Load() < 2 || cache.calls.Load() < 2 {
		t.Errorf("calls = %d sessions, %d cache", sessions.calls.Load(), cache.calls.Load())
	}
}

func TestNewPeriodicService_DefaultInterval(t *testing.T) {
	svc := NewPeriodicService("x", 0, func(context.Context) (int, error) { return 0, nil })
	if svc.interval != time.Minute {
		t.Errorf("interval = %v", svc.interval)
	}
}
