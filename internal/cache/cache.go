// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

// Package cache provides a thread-safe in-memory TTL cache.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsync/internal/metrics"
)

// Entry is a cached value with its expiry.
type Entry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// Stats are cumulative counters since creation.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// Cache is a map guarded by an RWMutex where every entry expires.
// name labels the cache_* Prometheus series.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	ttl        time.Duration
	maxEntries int
	name       string
	stats      Stats
}

// New creates a cache with default ttl. maxEntries <= 0 means unbounded.
// Call Run (or Cleanup periodically) to drop expired entries.
func New(name string, ttl time.Duration, maxEntries int) *Cache {
	return &Cache{
		entries:    make(map[string]Entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		name:       name,
		stats:      Stats{LastCleanup: time.Now()},
	}
}

// Get returns the value for key when present and not expired.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && time.Now().After(entry.ExpiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.stats.Evictions++
		c.mu.Unlock()
		ok = false
	}

	c.mu.Lock()
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	c.mu.Unlock()
	metrics.RecordCacheLookup(c.name, ok)

	if !ok {
		return nil, false
	}
	return entry.Data, true
}

// Set stores value with the default TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value for ttl. When the cache is full the entry closest
// to expiry is evicted first.
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = Entry{Data: value, ExpiresAt: time.Now().Add(ttl)}
	c.stats.TotalKeys = int64(len(c.entries))
	metrics.CacheSize.WithLabelValues(c.name).Set(float64(len(c.entries)))
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.ExpiresAt.Before(oldest) {
			oldestKey, oldest = k, e.ExpiresAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.stats.Evictions++
	}
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.stats.TotalKeys = int64(len(c.entries))
	c.mu.Unlock()
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.stats.TotalKeys = 0
	c.mu.Unlock()
	metrics.CacheSize.WithLabelValues(c.name).Set(0)
}

// Len counts entries, including expired ones not yet cleaned up.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cleanup drops expired entries and returns how many were removed.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for k, e := range c.entries {
		if now.After(e.ExpiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	c.stats.Evictions += int64(removed)
	c.stats.TotalKeys = int64(len(c.entries))
	c.stats.LastCleanup = now
	metrics.CacheSize.WithLabelValues(c.name).Set(float64(len(c.entries)))
	return removed
}

// Run calls Cleanup every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Cleanup()
		}
	}
}

// GetStats returns a snapshot of the counters.
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// HitRate is hits / (hits + misses) as a percentage.
func (c *Cache) HitRate() float64 {
	s := c.GetStats()
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// GenerateKey derives a stable key from a prefix and JSON-encodable params.
func GenerateKey(prefix string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return prefix
	}
	sum := sha256.Sum256(data)
	return prefix + ":" + hex.EncodeToString(sum[:16])
}
