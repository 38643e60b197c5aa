// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

//go:build integration

package testinfra

import (
	"context"
	"fmt"

	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// DefaultRedisImage is the Redis image used by metadata store tests.
const DefaultRedisImage = "redis:7-alpine"

// RedisContainer is a running Redis for store integration tests.
type RedisContainer struct {
	*tcredis.RedisContainer

	// URL is a redis:// connection string for store.RedisConfig.
	URL string
}

// NewRedisContainer starts Redis and resolves its connection URL.
func NewRedisContainer(ctx context.Context, opts ...Option) (*RedisContainer, error) {
	cfg := newContainerConfig(DefaultRedisImage, opts)

	container, err := tcredis.Run(ctx, cfg.image,
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(cfg.startTimeout),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start redis container: %w", err)
	}

	url, err := container.ConnectionString(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("redis connection string: %w", err)
	}

	return &RedisContainer{RedisContainer: container, URL: url}, nil
}
