// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

/*
Package cache provides a thread-safe, time-windowed map used to remember
which VPN identity held a virtual IP after the session that assigned it
has ended.

# Overview

TTLMap differs from a read-through cache in one important way: only writes
extend an entry's lifetime. Reads are peeks. An address that is looked up
constantly but no longer observed in the live session table still expires
exactly TTL after it was last written, which keeps late flow-log
attribution honest.

  - Write(key, value) stores the value and sets lastWrite = now
  - Peek(key) returns the value if now - lastWrite <= TTL; it never touches lastWrite
  - Prune() drops every expired entry and returns how many were dropped
  - Snapshot() prunes, then copies all remaining entries

There is no size bound; the key space is bounded by the VPN address pool.

# Clock

The clock is injectable so tests can step time deterministically:

	now := time.Unix(0, 0)
	m := cache.NewTTLMap[string](30*time.Minute, cache.WithClock(func() time.Time { return now }))
	m.Write("10.8.0.5", "alice")
	now = now.Add(1799 * time.Second)
	_, ok := m.Peek("10.8.0.5") // ok == true

# Thread Safety

All methods are safe for concurrent use. WriteAll applies a batch of writes
under a single lock so one refresh pass is one atomic update step.
*/
package cache
