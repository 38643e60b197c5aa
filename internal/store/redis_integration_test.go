// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/vpnwatch/internal/testinfra"
)

func TestRedisStore_Integration(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	redis, err := testinfra.NewRedisContainer(ctx, testinfra.WithStartTimeout(90*time.Second))
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	defer testinfra.CleanupContainer(t, context.Background(), redis)

	s, err := NewRedisStore(ctx, RedisConfig{URL: redis.URL, KeyPrefix: DefaultKeyPrefix})
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer s.Close()

	runStoreContract(t, s)
}
