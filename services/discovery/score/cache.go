// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package score

import (
	"sort"
	"sync"
	"time"
)

// Default cache tuning.
const (
	// DefaultCacheTTL is how long an entry stays servable.
	DefaultCacheTTL = 30 * time.Minute

	// DefaultMaxCacheEntries caps the cache size.
	DefaultMaxCacheEntries = 200

	// evictFraction of the oldest entries is removed on overflow.
	evictFraction = 0.1
)

// Clock abstracts time for TTL checks so tests can advance it directly.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// CacheStatsRecorder receives cache traffic as it happens, typically a
// metrics sink. Implementations must be safe for concurrent use and must
// not call back into the cache.
type CacheStatsRecorder interface {
	RecordCacheHit()
	RecordCacheMiss()
	RecordCacheEvictions(n int)
}

// CacheConfig tunes a ScoreCache.
type CacheConfig struct {
	// TTL is the entry lifetime. Default: 30 minutes.
	TTL time.Duration

	// MaxEntries caps the cache. Default: 200.
	MaxEntries int

	// Clock overrides the time source. Default: wall clock.
	Clock Clock

	// Recorder mirrors hit/miss/eviction traffic externally. Optional.
	Recorder CacheStatsRecorder
}

// ApplyDefaults fills zero-valued fields.
func (c *CacheConfig) ApplyDefaults() {
	if c.TTL <= 0 {
		c.TTL = DefaultCacheTTL
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = DefaultMaxCacheEntries
	}
	if c.Clock == nil {
		c.Clock = realClock{}
	}
}

// cacheEntry is one stored score with its bookkeeping.
type cacheEntry struct {
	score      *HybridBreakthroughScore
	insertedAt time.Time
	hitCount   int64
}

// CacheStats are cumulative cache counters.
type CacheStats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Expired   int64 `json:"expired"`
}

// ScoreCache is the TTL- and capacity-bounded evaluation cache.
//
// # Description
//
// Entries are keyed by the hypothesis content hash. A lookup past the TTL
// treats the entry as absent and drops it. When an insert would exceed
// capacity, the oldest 10% of entries (by insertion time, at least one) are
// evicted first, so the cache never exceeds its configured capacity.
//
// The cache is constructor-injected into the Evaluator rather than shared as
// package state, so tests run with isolated instances.
//
// # Thread Safety
//
// Safe for concurrent use; all operations hold an internal mutex.
type ScoreCache struct {
	mu      sync.Mutex
	config  CacheConfig
	entries map[string]*cacheEntry
	stats   CacheStats
}

// NewScoreCache creates an empty cache. Zero-valued config uses defaults.
func NewScoreCache(config CacheConfig) *ScoreCache {
	config.ApplyDefaults()
	return &ScoreCache{
		config:  config,
		entries: make(map[string]*cacheEntry),
	}
}

// Get returns the cached score for a key, or nil on miss. A hit increments
// the entry's hit counter exactly once per call.
func (c *ScoreCache) Get(key string) *HybridBreakthroughScore {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		c.recordMiss()
		return nil
	}

	if c.config.Clock.Now().Sub(entry.insertedAt) >= c.config.TTL {
		delete(c.entries, key)
		c.stats.Expired++
		c.stats.Misses++
		c.recordMiss()
		return nil
	}

	entry.hitCount++
	c.stats.Hits++
	if c.config.Recorder != nil {
		c.config.Recorder.RecordCacheHit()
	}
	return entry.score
}

func (c *ScoreCache) recordMiss() {
	if c.config.Recorder != nil {
		c.config.Recorder.RecordCacheMiss()
	}
}

// Put stores a score, evicting the oldest entries first if the cache is at
// capacity.
func (c *ScoreCache) Put(key string, s *HybridBreakthroughScore) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.config.MaxEntries {
		c.evictOldestLocked()
	}

	c.entries[key] = &cacheEntry{
		score:      s,
		insertedAt: c.config.Clock.Now(),
	}
}

// evictOldestLocked removes the oldest evictFraction of entries (at least
// one) by insertion timestamp. Caller holds c.mu.
func (c *ScoreCache) evictOldestLocked() {
	n := int(float64(c.config.MaxEntries) * evictFraction)
	if n < 1 {
		n = 1
	}

	type aged struct {
		key        string
		insertedAt time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{key: k, insertedAt: e.insertedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].insertedAt.Before(all[j].insertedAt) })

	if n > len(all) {
		n = len(all)
	}
	for _, a := range all[:n] {
		delete(c.entries, a.key)
		c.stats.Evictions++
	}
	if c.config.Recorder != nil {
		c.config.Recorder.RecordCacheEvictions(n)
	}
}

// HitCount returns the hit counter for a key (0 if absent). Intended for
// analytics and tests; does not count as an access.
func (c *ScoreCache) HitCount(key string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[key]; ok {
		return entry.hitCount
	}
	return 0
}

// Len returns the current entry count.
func (c *ScoreCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cumulative counters.
func (c *ScoreCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.stats
	stats.Entries = len(c.entries)
	return stats
}

// Clear drops all entries, keeping cumulative counters.
func (c *ScoreCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}
