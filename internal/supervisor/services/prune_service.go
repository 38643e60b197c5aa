// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package services

import (
	"context"
	"time"

	"github.com/tomtom215/vpnwatch/internal/logging"
)

// Pruner is satisfied by *vpn.Service.
type Pruner interface {
	PruneIPMappings() int
}

// CachePruneService drops expired IP identity entries on an interval.
// Lookups already ignore expired entries; pruning only bounds memory.
type CachePruneService struct {
	pruner   Pruner
	interval time.Duration
	name     string
}

// NewCachePruneService prunes every interval (default 1m).
func NewCachePruneService(pruner Pruner, interval time.Duration) *CachePruneService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CachePruneService{
		pruner:   pruner,
		interval: interval,
		name:     "ip-cache-pruner",
	}
}

// Serve implements suture.Service.
func (s *CachePruneService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := s.pruner.PruneIPMappings(); n > 0 {
				logging.Debug().Int("evicted", n).Msg("Pruned expired IP mappings")
			}
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (s *CachePruneService) String() string {
	return s.name
}
