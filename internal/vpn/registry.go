// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package vpn

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/vpnwatch/internal/logging"
	"github.com/tomtom215/vpnwatch/internal/metrics"
	"github.com/tomtom215/vpnwatch/internal/store"
)

// DefaultMetadataConcurrency bounds the metadata fan-out of one refresh pass.
const DefaultMetadataConcurrency = 8

// Registry is the label -> Profile map reconciled against a LiveSource and
// a MetadataStore. Construct one per process with NewRegistry.
type Registry struct {
	source      LiveSource
	store       MetadataStore
	concurrency int

	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewRegistry creates an empty registry. concurrency <= 0 selects
// DefaultMetadataConcurrency.
func NewRegistry(source LiveSource, metadataStore MetadataStore, concurrency int) *Registry {
	if concurrency <= 0 {
		concurrency = DefaultMetadataConcurrency
	}
	return &Registry{
		source:      source,
		store:       metadataStore,
		concurrency: concurrency,
		profiles:    make(map[string]*Profile),
	}
}

// Refresh runs one reconciliation pass. See the package documentation for
// the pass structure. Live source failures are logged and treated as empty;
// only metadata store failures are returned.
func (r *Registry) Refresh(ctx context.Context) error {
	start := time.Now()
	err := r.refresh(ctx)
	metrics.RecordRefresh(metrics.OpIdentities, time.Since(start), err)
	return err
}

func (r *Registry) refresh(ctx context.Context) error {
	listing := liveListing(ctx, r.source)
	sessions := liveSessions(ctx, r.source)

	survivors, evicted := r.reconcile(listing, sessions)
	metrics.UpdateRegistry(len(survivors), evicted)

	logging.Ctx(ctx).Debug().
		Int("listed", len(listing)).
		Int("sessions", len(sessions)).
		Int("evicted", evicted).
		Msg("Registry reconciled against live listing")

	return r.applyMetadata(ctx, survivors)
}

// reconcile performs steps 1-3 (mark, update or create, sweep) under the
// registry lock and returns the surviving profiles.
func (r *Registry) reconcile(listing map[string]Settings, sessions []Session) ([]*Profile, int) {
	byLabel := make(map[string][]Session)
	for _, s := range sessions {
		byLabel[s.Label] = append(byLabel[s.Label], s)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.profiles {
		p.setActive(false)
	}

	for label, settings := range listing {
		p, ok := r.profiles[label]
		if !ok {
			p = NewProfile(label)
			r.profiles[label] = p
		}
		p.update(settings, byLabel[label])
		p.setActive(true)
	}

	evicted := 0
	survivors := make([]*Profile, 0, len(r.profiles))
	for label, p := range r.profiles {
		if !p.isActive() {
			delete(r.profiles, label)
			evicted++
			continue
		}
		survivors = append(survivors, p)
	}

	return survivors, evicted
}

// applyMetadata is step 4: bounded concurrent fetch and overlay.
func (r *Registry) applyMetadata(ctx context.Context, profiles []*Profile) error {
	if r.store == nil || len(profiles) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, p := range profiles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			raw, err := r.store.GetMetadata(gctx, p.StoreKey())
			switch {
			case errors.Is(err, store.ErrNotFound):
				metrics.RecordMetadataFetch(metrics.MetadataMiss)
				raw = nil
			case err != nil:
				metrics.RecordMetadataFetch(metrics.MetadataError)
				return fmt.Errorf("load metadata for %s: %w", p.Label(), err)
			default:
				metrics.RecordMetadataFetch(metrics.MetadataHit)
			}

			p.applyMetadata(ParseMetadata(raw))
			return nil
		})
	}

	return g.Wait()
}

// Snapshot returns a copy of the label -> Profile map. The profiles are
// shared with the registry.
func (r *Registry) Snapshot() map[string]*Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Profile, len(r.profiles))
	for k, v := range r.profiles {
		out[k] = v
	}
	return out
}

// Get returns the profile registered under label.
func (r *Registry) Get(label string) (*Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[label]
	return p, ok
}

// Delete removes label from the registry. It reports whether it was present.
func (r *Registry) Delete(label string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[label]; !ok {
		return false
	}
	delete(r.profiles, label)
	metrics.UpdateRegistry(len(r.profiles), 0)
	return true
}

// Len returns the number of registered profiles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}

// Labels returns the registered labels in sorted order.
func (r *Registry) Labels() []string {
	r.mu.RLock()
	labels := make([]string, 0, len(r.profiles))
	for label := range r.profiles {
		labels = append(labels, label)
	}
	r.mu.RUnlock()

	sort.Strings(labels)
	return labels
}
