// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package vpn

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestRegistry_CreatesProfilesFromListing(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	src.set(map[string]Settings{
		"alice": {"name": "Alice"},
		"bob":   {},
	}, session("alice", "203.0.113.5:1194", "10.8.0.5"))

	r := NewRegistry(src, newFakeStore(), 4)
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if r.Len() != 2 {
		t.Fatalf("expected 2 profiles, got %d", r.Len())
	}
	alice, ok := r.Get("alice")
	if !ok {
		t.Fatal("expected alice to be registered")
	}
	if alice.DisplayName() != "Alice" {
		t.Errorf("expected display name 'Alice', got %q", alice.DisplayName())
	}
	if got := len(alice.Connections()); got != 1 {
		t.Errorf("expected 1 connection for alice, got %d", got)
	}
	if ts, ok := alice.LastActiveTimestamp(); !ok || ts.IsZero() {
		t.Error("expected alice to have a last active timestamp")
	}

	bob, _ := r.Get("bob")
	if _, ok := bob.LastActiveTimestamp(); ok {
		t.Error("expected bob to have no last active timestamp")
	}
	if got := bob.Connections(); len(got) != 0 {
		t.Errorf("expected no connections for bob, got %v", got)
	}
}

func TestRegistry_IdentityPermanence(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	src.set(map[string]Settings{"alice": {"v": 1}})
	r := NewRegistry(src, newFakeStore(), 0)
	ctx := context.Background()

	if err := r.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	first, _ := r.Get("alice")

	src.set(map[string]Settings{"alice": {"v": 2}}, session("alice", "198.51.100.1:1194", "10.8.0.9"))
	if err := r.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	second, _ := r.Get("alice")

	if first != second {
		t.Fatal("expected the same *Profile instance across refreshes")
	}
	if v, _ := first.Setting("v"); v != 2 {
		t.Errorf("expected updated setting v=2 visible through old pointer, got %v", v)
	}
	if len(first.Connections()) != 1 {
		t.Error("expected connections updated in place")
	}
}

func TestRegistry_EvictionAfterAbsentPass(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	src.set(map[string]Settings{"alice": {}, "bob": {}})
	r := NewRegistry(src, newFakeStore(), 0)
	ctx := context.Background()

	if err := r.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	src.set(map[string]Settings{"alice": {}})

	if _, ok := r.Get("bob"); !ok {
		t.Fatal("expected bob to remain until the next pass completes")
	}
	if err := r.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, ok := r.Get("bob"); ok {
		t.Error("expected bob to be evicted after absent pass")
	}
	if _, ok := r.Get("alice"); !ok {
		t.Error("expected alice to survive")
	}
}

func TestRegistry_MetadataPrecedence(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	src.set(map[string]Settings{"alice": {"F": 1, "live_only": "x"}})
	st := newFakeStore()
	ctx := context.Background()
	_ = st.SetMetadata(ctx, "vpnProfile:alice", map[string]string{"F": "2", "stored_only": "y"})

	r := NewRegistry(src, st, 0)
	if err := r.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	alice, _ := r.Get("alice")
	settings := alice.Settings()
	if settings["F"] != float64(2) {
		t.Errorf("expected persisted F=2 to win, got %v (%T)", settings["F"], settings["F"])
	}
	if settings["live_only"] != "x" {
		t.Errorf("expected live-only field preserved, got %v", settings["live_only"])
	}
	if settings["stored_only"] != "y" {
		t.Errorf("expected stored-only field applied, got %v", settings["stored_only"])
	}
	if md := alice.Metadata(); md["F"] != float64(2) {
		t.Errorf("expected metadata F=2, got %v", md["F"])
	}
}

func TestRegistry_MetadataReappliedEveryPass(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	src.set(map[string]Settings{"alice": {"F": 1}, "bob": {}})
	st := newFakeStore()
	ctx := context.Background()
	r := NewRegistry(src, st, 0)

	if err := r.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	_ = st.SetMetadata(ctx, "vpnProfile:alice", map[string]string{"F": "3"})
	st.calls.Store(0)

	if err := r.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := st.calls.Load(); got != 2 {
		t.Errorf("expected a metadata fetch for every profile, got %d", got)
	}
	alice, _ := r.Get("alice")
	if v, _ := alice.Setting("F"); v != float64(3) {
		t.Errorf("expected metadata applied to existing profile, got %v", v)
	}
}

func TestRegistry_Idempotent(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	src.set(map[string]Settings{"alice": {"F": 1}, "bob": {"name": "Bob"}},
		session("alice", "203.0.113.5:1194", "10.8.0.5"))
	st := newFakeStore()
	ctx := context.Background()
	_ = st.SetMetadata(ctx, "vpnProfile:alice", map[string]string{"F": "2"})
	r := NewRegistry(src, st, 0)

	capture := func() map[string]Settings {
		out := map[string]Settings{}
		for label, p := range r.Snapshot() {
			out[label] = p.Settings()
		}
		return out
	}

	if err := r.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	before := capture()
	if err := r.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	after := capture()

	if !reflect.DeepEqual(before, after) {
		t.Errorf("expected unchanged registry, before=%v after=%v", before, after)
	}
}

func TestRegistry_StoreFailureAbortsPass(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	listing := map[string]Settings{}
	for i := 0; i < 20; i++ {
		listing[fmt.Sprintf("user%02d", i)] = Settings{}
	}
	src.set(listing)

	errDown := errors.New("store down")
	st := newFakeStore()
	st.failKey = "vpnProfile:user07"
	st.failErr = errDown

	r := NewRegistry(src, st, 2)
	err := r.Refresh(context.Background())
	if !errors.Is(err, errDown) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if want := "load metadata for user07"; err == nil || !strings.Contains(err.Error(), want) {
		t.Errorf("expected error to name the label, got %v", err)
	}
	if r.Len() != 20 {
		t.Errorf("expected steps 1-3 to have completed, got %d profiles", r.Len())
	}
}

func TestRegistry_StoreFailureStopsRemainingFetches(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	listing := map[string]Settings{}
	for i := 0; i < 50; i++ {
		listing[fmt.Sprintf("user%02d", i)] = Settings{}
	}
	src.set(listing)

	st := newFakeStore()
	st.failAll = true
	st.failErr = errors.New("store down")
	st.delay = 5 * time.Millisecond

	r := NewRegistry(src, st, 2)
	if err := r.Refresh(context.Background()); err == nil {
		t.Fatal("expected store error")
	}
	if got := st.calls.Load(); got >= int32(len(listing)) {
		t.Errorf("expected remaining fetches to be skipped, got %d of %d", got, len(listing))
	}
}

func TestRegistry_MissingMetadataIsNotAnError(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	src.set(map[string]Settings{"alice": {"F": 1}})
	r := NewRegistry(src, newFakeStore(), 0)

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("expected no error for missing metadata, got %v", err)
	}
	alice, _ := r.Get("alice")
	if v, _ := alice.Setting("F"); v != 1 {
		t.Errorf("expected live value kept, got %v", v)
	}
}

func TestRegistry_LiveSourceFailureIsEmpty(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	src.set(map[string]Settings{"alice": {}})
	r := NewRegistry(src, newFakeStore(), 0)
	ctx := context.Background()

	if err := r.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	src.mu.Lock()
	src.listErr = errors.New("status file missing")
	src.mu.Unlock()

	if err := r.Refresh(ctx); err != nil {
		t.Fatalf("expected live source error to be swallowed, got %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("expected empty listing to evict all profiles, got %d", r.Len())
	}
}

func TestRegistry_BoundedConcurrency(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	listing := map[string]Settings{}
	for i := 0; i < 16; i++ {
		listing[fmt.Sprintf("user%02d", i)] = Settings{}
	}
	src.set(listing)

	st := newFakeStore()
	st.delay = 5 * time.Millisecond

	r := NewRegistry(src, st, 3)
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := st.maxSeen.Load(); got > 3 {
		t.Errorf("expected at most 3 concurrent fetches, saw %d", got)
	}
	if got := st.calls.Load(); got != 16 {
		t.Errorf("expected 16 fetches, got %d", got)
	}
}

func TestRegistry_GetDelete(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	src.set(map[string]Settings{"alice": {}, "bob": {}})
	r := NewRegistry(src, nil, 0)
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if !r.Delete("alice") {
		t.Error("expected Delete to report alice present")
	}
	if r.Delete("alice") {
		t.Error("expected second Delete to report absent")
	}
	if _, ok := r.Get("alice"); ok {
		t.Error("expected alice deleted")
	}
	if got := r.Labels(); !reflect.DeepEqual(got, []string{"bob"}) {
		t.Errorf("expected [bob], got %v", got)
	}
}

func TestRegistry_SnapshotIsCopy(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	src.set(map[string]Settings{"alice": {}})
	r := NewRegistry(src, nil, 0)
	_ = r.Refresh(context.Background())

	snap := r.Snapshot()
	delete(snap, "alice")

	if _, ok := r.Get("alice"); !ok {
		t.Error("expected registry unaffected by snapshot mutation")
	}
}
