// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package openvpn

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vpnwatch/internal/logging"
	"github.com/tomtom215/vpnwatch/internal/validation"
	"github.com/tomtom215/vpnwatch/internal/vpn"
)

// ProfileSuffix is the file name suffix of a profile settings file.
const ProfileSuffix = ".settings.json"

// ProfileDir lists identities from a directory of <label>.settings.json
// files. Each file holds a JSON object; an empty file is an identity with
// no settings.
type ProfileDir struct {
	path string
}

// NewProfileDir returns a lister for path.
func NewProfileDir(path string) *ProfileDir {
	return &ProfileDir{path: path}
}

// Path returns the directory being listed.
func (d *ProfileDir) Path() string {
	return d.path
}

// ListIdentities reads every profile file in the directory. A file that
// cannot be decoded is skipped with a warning so one bad profile does not
// hide the rest.
func (d *ProfileDir) ListIdentities(ctx context.Context) (map[string]vpn.Settings, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("read profile dir %s: %w", d.path, err)
	}

	out := make(map[string]vpn.Settings, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ProfileSuffix) {
			continue
		}
		label := strings.TrimSuffix(name, ProfileSuffix)
		if !validation.ValidLabel(label) {
			logging.Ctx(ctx).Warn().Str("file", name).Msg("Skipping profile with invalid label")
			continue
		}

		settings, err := readProfile(filepath.Join(d.path, name))
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("label", label).Msg("Skipping unreadable profile")
			continue
		}
		out[label] = settings
	}
	return out, nil
}

func readProfile(path string) (vpn.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	settings := vpn.Settings{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return settings, nil
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if settings == nil {
		return nil, errors.New("profile is not a JSON object")
	}
	return settings, nil
}
