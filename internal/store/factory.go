// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/vpnwatch/internal/logging"
)

// Config selects and configures a backend.
type Config struct {
	Backend    string
	BadgerPath string
	RedisURL   string
	KeyPrefix  string
	Timeout    time.Duration
}

// New opens the configured backend. An empty Backend selects memory.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		logging.Warn().Msg("Using in-memory metadata store; metadata is lost on restart")
		return NewMemoryStore(), nil

	case BackendBadger:
		s, err := OpenBadgerStore(cfg.BadgerPath, cfg.KeyPrefix)
		if err != nil {
			return nil, err
		}
		logging.Info().Str("path", cfg.BadgerPath).Msg("Opened BadgerDB metadata store")
		return s, nil

	case BackendRedis:
		return NewRedisStore(ctx, RedisConfig{
			URL:          cfg.RedisURL,
			KeyPrefix:    cfg.KeyPrefix,
			DialTimeout:  cfg.Timeout,
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
		})

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
