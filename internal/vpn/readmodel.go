// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package vpn

import (
	"sort"
	"time"
)

// ProfileView is the reporting read model of one identity.
type ProfileView struct {
	Label          string     `json:"label"`
	DisplayName    string     `json:"display_name"`
	Namespace      string     `json:"namespace"`
	NetworkProfile string     `json:"network_profile"`
	Settings       Settings   `json:"settings"`
	Connections    []Session  `json:"connections"`
	LastActive     *time.Time `json:"last_active"`
	Online         bool       `json:"online"`
}

// BuildProfileViews attaches to each profile the live sessions that match
// its label (see LabelMatches) and their latest LastActive. Views are sorted
// by label.
func BuildProfileViews(profiles map[string]*Profile, sessions []Session) []ProfileView {
	views := make([]ProfileView, 0, len(profiles))
	for label, p := range profiles {
		matched := cloneSessions(sessionsFor(label, sessions))

		v := ProfileView{
			Label:          label,
			DisplayName:    p.DisplayName(),
			Namespace:      p.Namespace(),
			NetworkProfile: p.NetworkProfile(),
			Settings:       p.Settings(),
			Connections:    matched,
			Online:         len(matched) > 0,
		}
		if last := maxLastActive(matched); !last.IsZero() {
			v.LastActive = &last
		}
		views = append(views, v)
	}

	sort.Slice(views, func(i, j int) bool { return views[i].Label < views[j].Label })
	return views
}
