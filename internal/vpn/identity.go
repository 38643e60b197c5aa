// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package vpn

import (
	"sync"
	"time"
)

// Identity is the capability set shared by every kind of tracked client.
type Identity interface {
	// UniqueID is the stable key of the identity within its namespace.
	UniqueID() string

	// Namespace groups identities of one kind, e.g. "vpnProfile".
	Namespace() string

	// StoreKey is the metadata store key: "<namespace>:<unique id>".
	StoreKey() string

	// DisplayName is a human readable name, falling back to UniqueID.
	DisplayName() string

	// NetworkProfile names the network policy the identity is placed in.
	NetworkProfile() string
}

// NamespaceVPNProfile is the namespace of OpenVPN client profiles.
const NamespaceVPNProfile = "vpnProfile"

// DefaultNetworkProfile is used when settings name no network profile.
const DefaultNetworkProfile = "default"

// Settings keys with meaning to Profile.
const (
	SettingDisplayName    = "name"
	SettingNetworkProfile = "networkProfile"
)

// Profile is an OpenVPN client identity keyed by certificate common name.
// The registry updates a Profile in place, so a pointer obtained from one
// snapshot observes later refreshes.
type Profile struct {
	label string

	mu          sync.RWMutex
	settings    Settings
	metadata    Settings
	connections []Session
	lastActive  time.Time
	active      bool
}

// NewProfile creates a profile for label.
func NewProfile(label string) *Profile {
	return &Profile{
		label:       label,
		settings:    Settings{},
		metadata:    Settings{},
		connections: []Session{},
	}
}

// Label returns the immutable profile label.
func (p *Profile) Label() string { return p.label }

// UniqueID implements Identity.
func (p *Profile) UniqueID() string { return p.label }

// Namespace implements Identity.
func (p *Profile) Namespace() string { return NamespaceVPNProfile }

// StoreKey implements Identity.
func (p *Profile) StoreKey() string { return NamespaceVPNProfile + ":" + p.label }

// DisplayName implements Identity.
func (p *Profile) DisplayName() string {
	if name := p.stringSetting(SettingDisplayName); name != "" {
		return name
	}
	return p.label
}

// NetworkProfile implements Identity.
func (p *Profile) NetworkProfile() string {
	if np := p.stringSetting(SettingNetworkProfile); np != "" {
		return np
	}
	return DefaultNetworkProfile
}

func (p *Profile) stringSetting(key string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, _ := p.settings[key].(string)
	return s
}

// Settings returns a copy of the effective settings (live with metadata applied).
func (p *Profile) Settings() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings.Clone()
}

// Setting returns one effective settings field.
func (p *Profile) Setting(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.settings[key]
	return v, ok
}

// Metadata returns a copy of the last applied persisted metadata.
func (p *Profile) Metadata() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.metadata.Clone()
}

// Connections returns a copy of the sessions attached on the last refresh.
func (p *Profile) Connections() []Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return cloneSessions(p.connections)
}

// LastActiveTimestamp returns the latest LastActive of the profile's
// sessions. ok is false when the profile has no sessions.
func (p *Profile) LastActiveTimestamp() (t time.Time, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastActive, !p.lastActive.IsZero()
}

// update replaces live-sourced state. Metadata must be re-applied afterwards.
func (p *Profile) update(settings Settings, sessions []Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.settings = settings.Clone()
	p.connections = cloneSessions(sessions)
	p.lastActive = maxLastActive(sessions)
}

// applyMetadata overlays md on the effective settings. Persisted fields win.
func (p *Profile) applyMetadata(md Settings) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metadata = md.Clone()
	for k, v := range md {
		p.settings[k] = v
	}
}

func (p *Profile) setActive(active bool) {
	p.mu.Lock()
	p.active = active
	p.mu.Unlock()
}

func (p *Profile) isActive() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}

var _ Identity = (*Profile)(nil)
