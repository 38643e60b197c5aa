// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package openvpn

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tomtom215/vpnwatch/internal/vpn"
)

// FileSource reads sessions from the server's --status file.
type FileSource struct {
	*ProfileDir
	statusPath string
	loc        *time.Location
}

// NewFileSource creates a source over statusPath and profileDir.
func NewFileSource(statusPath, profileDir string) *FileSource {
	return &FileSource{
		ProfileDir: NewProfileDir(profileDir),
		statusPath: statusPath,
		loc:        time.Local,
	}
}

// Statistics parses the current status file.
func (s *FileSource) Statistics(ctx context.Context) (*vpn.Statistics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.statusPath)
	if err != nil {
		return nil, fmt.Errorf("open status file: %w", err)
	}
	defer f.Close()

	stats, err := ParseStatus(f, s.loc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.statusPath, err)
	}
	return stats, nil
}

var _ vpn.LiveSource = (*FileSource)(nil)
