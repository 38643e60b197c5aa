// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package vpn

import (
	"time"
)

// Settings is the configuration blob of one identity, as listed by the live
// source and overlaid with persisted metadata.
type Settings map[string]any

// Clone returns a shallow copy of s. A nil Settings clones to an empty map.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Session is one live VPN connection as reported by the statistics source.
type Session struct {
	// Label is the identity label (certificate common name) of the client.
	Label string `json:"label"`

	// ClientID is the daemon-assigned connection ID, when known.
	ClientID string `json:"client_id,omitempty"`

	// VirtualAddresses are the tunnel addresses assigned to the session.
	// Entries are not validated by the source.
	VirtualAddresses []string `json:"virtual_addresses"`

	// Endpoint is the real "ip:port" the client connects from.
	Endpoint string `json:"endpoint"`

	// LastActive is the last time traffic was seen for the session.
	LastActive time.Time `json:"last_active"`

	// ConnectedSince is when the session was established.
	ConnectedSince time.Time `json:"connected_since,omitempty"`

	BytesReceived int64 `json:"bytes_received"`
	BytesSent     int64 `json:"bytes_sent"`
}

// Statistics is one snapshot of the live session table.
type Statistics struct {
	Sessions  []Session `json:"sessions"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

func cloneSessions(in []Session) []Session {
	if len(in) == 0 {
		return []Session{}
	}
	out := make([]Session, len(in))
	for i, s := range in {
		s.VirtualAddresses = append([]string(nil), s.VirtualAddresses...)
		out[i] = s
	}
	return out
}

// maxLastActive returns the latest LastActive among sessions, or the zero
// time if there are none.
func maxLastActive(sessions []Session) time.Time {
	var latest time.Time
	for _, s := range sessions {
		if s.LastActive.After(latest) {
			latest = s.LastActive
		}
	}
	return latest
}
