// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package cache

import (
	"sync"
	"time"
)

// Entry is a cached value with the time it was last written.
type Entry[V any] struct {
	Value     V
	LastWrite time.Time
}

// Stats tracks cache performance metrics
type Stats struct {
	Hits        int64
	Misses      int64
	Writes      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// Option configures a TTLMap.
type Option func(*options)

type options struct {
	now       func() time.Time
	onEvicted func(n int)
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithEvictionHook registers a callback invoked with the number of entries
// removed by each expiry sweep (only when n > 0). The callback runs with the
// map lock released.
func WithEvictionHook(fn func(n int)) Option {
	return func(o *options) {
		o.onEvicted = fn
	}
}

// TTLMap is a string-keyed map whose entries expire TTL after their last write.
type TTLMap[V any] struct {
	mu        sync.Mutex
	entries   map[string]Entry[V]
	ttl       time.Duration
	now       func() time.Time
	onEvicted func(n int)
	stats     Stats
}

// NewTTLMap creates an empty map. A non-positive ttl makes every entry
// expire as soon as any time passes after its write.
func NewTTLMap[V any](ttl time.Duration, opts ...Option) *TTLMap[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTLMap[V]{
		entries:   make(map[string]Entry[V]),
		ttl:       ttl,
		now:       o.now,
		onEvicted: o.onEvicted,
	}
}

// TTL returns the configured expiry window.
func (m *TTLMap[V]) TTL() time.Duration {
	return m.ttl
}

// Write stores value under key and resets its lastWrite to now.
func (m *TTLMap[V]) Write(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = Entry[V]{Value: value, LastWrite: m.now()}
	m.stats.Writes++
	m.stats.TotalKeys = int64(len(m.entries))
}

// WriteAll stores every pair in kv with the same lastWrite, under one lock.
func (m *TTLMap[V]) WriteAll(kv map[string]V) {
	if len(kv) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, v := range kv {
		m.entries[k] = Entry[V]{Value: v, LastWrite: now}
	}
	m.stats.Writes += int64(len(kv))
	m.stats.TotalKeys = int64(len(m.entries))
}

// Peek returns the value for key without changing its lastWrite.
// Expired entries are reported as a miss but left for Prune to remove.
func (m *TTLMap[V]) Peek(key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok || m.expired(entry, m.now()) {
		m.stats.Misses++
		var zero V
		return zero, false
	}

	m.stats.Hits++
	return entry.Value, true
}

// Delete removes key regardless of its age.
func (m *TTLMap[V]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	m.stats.TotalKeys = int64(len(m.entries))
}

// Prune removes every expired entry and returns how many were removed.
func (m *TTLMap[V]) Prune() int {
	m.mu.Lock()
	n := m.pruneLocked()
	m.mu.Unlock()

	m.notifyEvicted(n)
	return n
}

// Snapshot prunes expired entries, then returns a copy of what remains.
func (m *TTLMap[V]) Snapshot() map[string]V {
	m.mu.Lock()
	n := m.pruneLocked()
	out := make(map[string]V, len(m.entries))
	for k, e := range m.entries {
		out[k] = e.Value
	}
	m.mu.Unlock()

	m.notifyEvicted(n)
	return out
}

// Len returns the number of stored entries, expired or not.
func (m *TTLMap[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Stats returns a copy of the cache statistics.
func (m *TTLMap[V]) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// HitRate returns Peek hits as a percentage of all Peek calls.
func (m *TTLMap[V]) HitRate() float64 {
	s := m.Stats()
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

func (m *TTLMap[V]) expired(e Entry[V], now time.Time) bool {
	return now.Sub(e.LastWrite) > m.ttl
}

// pruneLocked must be called with mu held.
func (m *TTLMap[V]) pruneLocked() int {
	now := m.now()
	removed := 0
	for k, e := range m.entries {
		if m.expired(e, now) {
			delete(m.entries, k)
			removed++
		}
	}
	m.stats.Evictions += int64(removed)
	m.stats.TotalKeys = int64(len(m.entries))
	m.stats.LastCleanup = now
	return removed
}

func (m *TTLMap[V]) notifyEvicted(n int) {
	if n > 0 && m.onEvicted != nil {
		m.onEvicted(n)
	}
}
