// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package vpn

import (
	"context"
	"time"

	"github.com/tomtom215/vpnwatch/internal/cache"
	"github.com/tomtom215/vpnwatch/internal/logging"
	"github.com/tomtom215/vpnwatch/internal/metrics"
	"github.com/tomtom215/vpnwatch/internal/netaddr"
)

// DefaultIPIdentityTTL is how long an address stays attributed to a label
// after it was last seen in a live session.
const DefaultIPIdentityTTL = 1800 * time.Second

// IPIdentityCache maps virtual IPs to identity labels for a TTL window.
// Refresh only ever writes; addresses that disappear from the live source
// age out instead of being removed.
type IPIdentityCache struct {
	source  LiveSource
	entries *cache.TTLMap[string]
}

// NewIPIdentityCache creates an empty cache. ttl <= 0 selects DefaultIPIdentityTTL.
func NewIPIdentityCache(source LiveSource, ttl time.Duration, opts ...cache.Option) *IPIdentityCache {
	if ttl <= 0 {
		ttl = DefaultIPIdentityTTL
	}
	opts = append([]cache.Option{cache.WithEvictionHook(metrics.RecordIPIdentityEvictions)}, opts...)
	return &IPIdentityCache{
		source:  source,
		entries: cache.NewTTLMap[string](ttl, opts...),
	}
}

// Refresh writes (ip -> label, lastWrite=now) for every valid virtual address
// of every live session, as one atomic update. It returns the number of
// addresses written.
func (c *IPIdentityCache) Refresh(ctx context.Context) int {
	start := time.Now()

	batch, invalid := mapAddresses(liveSessions(ctx, c.source), func(s Session) string {
		return s.Label
	})
	c.entries.WriteAll(batch)

	metrics.RecordInvalidAddresses(invalid)
	metrics.SetIPIdentityEntries(c.entries.Len())
	metrics.RecordRefresh(metrics.OpIPMappings, time.Since(start), nil)

	logging.Ctx(ctx).Debug().
		Int("written", len(batch)).
		Int("skipped", invalid).
		Msg("IP identity cache refreshed")

	return len(batch)
}

// Lookup returns the label for ip without extending the entry's lifetime.
func (c *IPIdentityCache) Lookup(ip string) (string, bool) {
	label, ok := c.entries.Peek(ip)
	metrics.RecordIPIdentityLookup(ok)
	return label, ok
}

// Prune drops expired entries and returns how many were dropped.
func (c *IPIdentityCache) Prune() int {
	n := c.entries.Prune()
	metrics.SetIPIdentityEntries(c.entries.Len())
	return n
}

// Snapshot prunes, then returns every unexpired ip -> label pair.
func (c *IPIdentityCache) Snapshot() map[string]string {
	out := c.entries.Snapshot()
	metrics.SetIPIdentityEntries(len(out))
	return out
}

// TTL returns the attribution window.
func (c *IPIdentityCache) TTL() time.Duration {
	return c.entries.TTL()
}

// mapAddresses builds ip -> value(session) for every valid virtual address.
// Later sessions overwrite earlier ones for a shared address.
func mapAddresses(sessions []Session, value func(Session) string) (map[string]string, int) {
	out := make(map[string]string)
	invalid := 0
	for _, s := range sessions {
		for _, addr := range s.VirtualAddresses {
			if netaddr.Classify(addr) == netaddr.Invalid {
				invalid++
				continue
			}
			out[addr] = value(s)
		}
	}
	return out, invalid
}
