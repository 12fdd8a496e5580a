// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

type mockService struct {
	name     string
	starts   atomic.Int32
	failures atomic.Int32
	maxFails int32
}

func (m *mockService) Serve(ctx context.Context) error {
	m.starts.Add(1)
	if m.failures.Add(1) <= m.maxFails {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockService) String() string { return m.name }

var _ suture.Service = (*mockService)(nil)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSupervisorTree_Defaults(t *testing.T) {
	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("NewSupervisorTree: %v", err)
	}
	if tree.Root() == nil {
		t.Fatal("root is nil")
	}
	if tree.config != DefaultTreeConfig() {
		t.Errorf("config = %+v, want defaults", tree.config)
	}

	tree, _ = NewSupervisorTree(quietLogger(), TreeConfig{FailureBackoff: time.Second})
	if tree.config.FailureBackoff != time.Second || tree.config.FailureThreshold != 5 {
		t.Errorf("partial config = %+v", tree.config)
	}
}

func TestSupervisorTree_StartsEveryLayer(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	services := []*mockService{{name: "maintenance"}, {name: "messaging"}, {name: "api"}}
	tree.AddMaintenanceService(services[0])
	tree.AddMessagingService(services[1])
	tree.AddAPIService(services[2])

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for _, svc := range services {
		for svc.starts.Load() == 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		if svc.starts.Load() == 0 {
			t.Errorf("%s was not started", svc.name)
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop")
	}
	if report, _ := tree.UnstoppedServiceReport(); len(report) != 0 {
		t.Errorf("unstopped services: %v", report)
	}
}

func TestSupervisorTree_RestartsFailingService(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})
	failing := &mockService{name: "forwarder", maxFails: 2}
	stable := &mockService{name: "http"}
	tree.AddMessagingService(failing)
	tree.AddAPIService(stable)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	for failing.starts.Load() < 3 && ctx.Err() == nil {
		time.Sleep(5 * time.Millisecond)
	}
	if failing.starts.Load() < 3 {
		t.Errorf("failing service starts = %d, want >= 3", failing.starts.Load())
	}
	if stable.starts.Load() != 1 {
		t.Errorf("stable service starts = %d, want 1", stable.starts.Load())
	}
	cancel()
	<-errCh
}
