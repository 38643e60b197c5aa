// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package vpn

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/vpnwatch/internal/store"
)

// fakeSource is a LiveSource whose listing and sessions tests set directly.
type fakeSource struct {
	mu        sync.Mutex
	listing   map[string]Settings
	sessions  []Session
	listErr   error
	statsErr  error
	nilStats  bool
	listCalls int
}

func (f *fakeSource) ListIdentities(ctx context.Context) (map[string]Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make(map[string]Settings, len(f.listing))
	for k, v := range f.listing {
		out[k] = v.Clone()
	}
	return out, nil
}

func (f *fakeSource) Statistics(ctx context.Context) (*Statistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	if f.nilStats {
		return nil, nil
	}
	return &Statistics{Sessions: cloneSessions(f.sessions)}, nil
}

func (f *fakeSource) set(listing map[string]Settings, sessions ...Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listing = listing
	f.sessions = sessions
}

// fakeStore wraps a MemoryStore with error injection and concurrency tracking.
type fakeStore struct {
	*store.MemoryStore

	failKey  string
	failAll  bool
	failErr  error
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	calls    atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{MemoryStore: store.NewMemoryStore()}
}

func (f *fakeStore) GetMetadata(ctx context.Context, key string) (map[string]string, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.failAll || (f.failKey != "" && key == f.failKey) {
		return nil, f.failErr
	}
	return f.MemoryStore.GetMetadata(ctx, key)
}

// testClock is a manually advanced clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func session(label, endpoint string, addrs ...string) Session {
	return Session{
		Label:            label,
		VirtualAddresses: addrs,
		Endpoint:         endpoint,
		LastActive:       time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
	}
}
