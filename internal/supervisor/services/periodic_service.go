// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package services

import (
	"context"
	"time"

	"github.com/tomtom215/reelsync/internal/logging"
)

// Task is one run of a periodic job. It returns how many items it touched.
type Task func(ctx context.Context) (int, error)

// PeriodicService runs a Task on a fixed interval. A failed run is logged
// and retried on the next tick; it never restarts the service.
type PeriodicService struct {
	name     string
	interval time.Duration
	task     Task
}

// NewPeriodicService creates a service named name running task every
// interval.
func NewPeriodicService(name string, interval time.Duration, task Task) *PeriodicService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PeriodicService{name: name, interval: interval, task: task}
}

// Serve implements suture.Service.
func (p *PeriodicService) Serve(ctx context.Context) error {
	log := logging.WithComponent(p.name)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := p.task(ctx)
			switch {
			case err != nil:
				log.Warn().Err(err).Msg("Periodic task failed")
			case n > 0:
				log.Debug().Int("count", n).Msg("Periodic task completed")
			}
		}
	}
}

func (p *PeriodicService) String() string {
	return p.name
}

// SessionCleaner is satisfied by auth.SessionStore.
type SessionCleaner interface {
	CleanupExpired(ctx context.Context) (int, error)
}

// NewSessionCleanupService purges expired sessions every interval.
func NewSessionCleanupService(store SessionCleaner, interval time.Duration) *PeriodicService {
	return NewPeriodicService("session-cleanup", interval, store.CleanupExpired)
}

// ExpiringCache is satisfied by *cache.Cache.
type ExpiringCache interface {
	Cleanup() int
}

// NewCacheCleanupService drops expired cache entries every interval.
func NewCacheCleanupService(name string, c ExpiringCache, interval time.Duration) *PeriodicService {
	return NewPeriodicService(name, interval, func(context.Context) (int, error) {
		return c.Cleanup(), nil
	})
}
