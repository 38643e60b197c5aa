// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

// Package testinfra starts Docker containers for integration tests with
// testcontainers-go. Every file carries the integration build tag:
//
//	go test -tags integration ./...
//
// Redis backs the metadata store contract tests:
//
//	redis, err := testinfra.NewRedisContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer testinfra.CleanupContainer(t, ctx, redis)
//	s, err := store.NewRedisStore(ctx, store.RedisConfig{URL: redis.URL})
//
// NATS backs the external event bus tests (NewNATSContainer).
package testinfra
