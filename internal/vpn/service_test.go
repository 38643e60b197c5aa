// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package vpn

import (
	"context"
	"testing"
	"time"
)

func TestService_CacheDivergenceOnDisconnect(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	src := &fakeSource{}
	src.set(map[string]Settings{"userA": {}}, session("userA", "203.0.113.5:1194", "10.8.0.5"))

	cfg := DefaultConfig()
	cfg.Now = clock.Now
	svc := NewService(src, newFakeStore(), cfg)
	ctx := context.Background()

	// t0: connected
	if m := svc.IPUniqueIDMappings(ctx); m["10.8.0.5"] != "userA" {
		t.Fatalf("expected userA at t0, got %v", m)
	}
	if m := svc.IPEndpointMappings(ctx); m["10.8.0.5"] != "203.0.113.5:1194" {
		t.Fatalf("expected endpoint at t0, got %v", m)
	}

	// t1 < t0+1800: disconnected
	src.set(map[string]Settings{"userA": {}})
	clock.Advance(10 * time.Minute)

	if m := svc.IPUniqueIDMappings(ctx); m["10.8.0.5"] != "userA" {
		t.Errorf("expected identity mapping to survive disconnect, got %v", m)
	}
	if m := svc.IPEndpointMappings(ctx); len(m) != 0 {
		t.Errorf("expected endpoint mapping gone after disconnect, got %v", m)
	}

	// past the window
	clock.Advance(21 * time.Minute)
	if m := svc.IPUniqueIDMappings(ctx); len(m) != 0 {
		t.Errorf("expected identity mapping expired, got %v", m)
	}
}

func TestService_RefreshTriggers(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	src.set(map[string]Settings{"alice": {}}, session("alice", "203.0.113.5:1194", "10.8.0.5"))
	svc := NewService(src, newFakeStore(), DefaultConfig())
	ctx := context.Background()

	if err := svc.RefreshIdentities(ctx); err != nil {
		t.Fatalf("RefreshIdentities: %v", err)
	}
	if _, ok := svc.Identity("alice"); !ok {
		t.Error("expected alice registered")
	}
	if len(svc.Identities()) != 1 {
		t.Errorf("expected 1 identity, got %d", len(svc.Identities()))
	}

	if err := svc.RefreshIPMappings(ctx); err != nil {
		t.Fatalf("RefreshIPMappings: %v", err)
	}
	if label, ok := svc.LookupIP("10.8.0.5"); !ok || label != "alice" {
		t.Errorf("expected 10.8.0.5 -> alice, got %q ok=%v", label, ok)
	}
	if svc.PruneIPMappings() != 0 {
		t.Error("expected nothing to prune")
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := svc.RefreshIPMappings(canceled); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestService_Profiles(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	src.set(map[string]Settings{"alice": {"networkProfile": "staff"}, "fishboneVPN1": {}},
		session("alice", "203.0.113.5:1194", "10.8.0.5"),
		session("fishboneVPN1_router2", "198.51.100.2:1194", "10.8.0.20"),
	)
	svc := NewService(src, newFakeStore(), DefaultConfig())
	ctx := context.Background()
	if err := svc.RefreshIdentities(ctx); err != nil {
		t.Fatalf("RefreshIdentities: %v", err)
	}

	views := svc.Profiles(ctx)
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	if views[0].Label != "alice" || views[1].Label != LegacyDefaultLabel {
		t.Errorf("expected views sorted by label, got %s, %s", views[0].Label, views[1].Label)
	}
	if views[0].NetworkProfile != "staff" {
		t.Errorf("expected network profile 'staff', got %q", views[0].NetworkProfile)
	}
	if len(views[1].Connections) != 1 || !views[1].Online {
		t.Errorf("expected legacy profile to claim prefixed session, got %+v", views[1])
	}
	if views[1].LastActive == nil {
		t.Error("expected legacy profile last active to be set")
	}
}
