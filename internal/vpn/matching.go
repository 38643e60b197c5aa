// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package vpn

import "strings"

// LegacyDefaultLabel is the label of the factory default profile. Older
// firmware suffixed it per device, so it also claims sessions whose label
// starts with it.
const LegacyDefaultLabel = "fishboneVPN1"

// LabelMatches reports whether a session labelled sessionLabel belongs to the
// identity labelled identityLabel.
func LabelMatches(identityLabel, sessionLabel string) bool {
	if identityLabel == sessionLabel {
		return true
	}
	return identityLabel == LegacyDefaultLabel && strings.HasPrefix(sessionLabel, LegacyDefaultLabel)
}

// sessionsFor returns the sessions that belong to label, in source order.
func sessionsFor(label string, sessions []Session) []Session {
	var out []Session
	for _, s := range sessions {
		if LabelMatches(label, s.Label) {
			out = append(out, s)
		}
	}
	return out
}
