// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

type lookupRequest struct {
	Address string `json:"address" validate:"required,vpnaddr"`
	Label   string `json:"label" validate:"omitempty,vpnlabel"`
}

func TestValidateStruct_VPNAddr(t *testing.T) {
	tests := []struct {
		address string
		valid   bool
	}{
		{"10.8.0.5", true},
		{"fd00::1000", true},
		{"999.999.999.999", false},
		{"not-an-ip", false},
		{"10.8.0.0/24", false},
		{"fe80::1%eth0", false},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			err := ValidateStruct(&lookupRequest{Address: tt.address})
			if tt.valid && err != nil {
				t.Errorf("expected %q to be valid, got %v", tt.address, err)
			}
			if !tt.valid {
				if err == nil {
					t.Fatalf("expected %q to be invalid", tt.address)
				}
				if err.Errors()[0].Field() != "address" {
					t.Errorf("expected json field name 'address', got %q", err.Errors()[0].Field())
				}
			}
		})
	}
}

func TestValidateStruct_VPNLabel(t *testing.T) {
	tests := []struct {
		label string
		valid bool
	}{
		{"alice", true},
		{"fishboneVPN1-laptop", true},
		{"ops_team.01@corp", true},
		{".hidden", false},
		{"../etc/passwd", false},
		{"Alice Smith", true},
		{"ops+vpn", true},
		{"a/b", false},
		{`a\b`, false},
		{"tab\tname", false},
		{"bad\xffutf8", false},
		{strings.Repeat("a", 64), true},
		{strings.Repeat("a", 65), false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidLabel(tt.label); got != tt.valid {
			t.Errorf("ValidLabel(%q): expected %v, got %v", tt.label, tt.valid, got)
		}
		if tt.label == "" {
			continue
		}
		err := ValidateStruct(&lookupRequest{Address: "10.8.0.5", Label: tt.label})
		if (err == nil) != tt.valid {
			t.Errorf("label %q: expected valid=%v, got %v", tt.label, tt.valid, err)
		}
	}
}

type nestedConfig struct {
	Store struct {
		Backend string `koanf:"backend" validate:"oneof=memory badger redis"`
	} `koanf:"store"`
	Port int `koanf:"port" validate:"min=1,max=65535"`
}

func TestValidateStruct_KoanfFieldPaths(t *testing.T) {
	cfg := nestedConfig{Port: 0}
	cfg.Store.Backend = "etcd"

	err := ValidateStruct(&cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	if len(err.Errors()) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(err.Errors()), err)
	}

	msg := err.Error()
	if !strings.Contains(msg, "store.backend must be one of: memory badger redis") {
		t.Errorf("expected store.backend message, got %q", msg)
	}
	if !strings.Contains(msg, "port must be at least 1") {
		t.Errorf("expected port message, got %q", msg)
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %s", apiErr.Code)
	}
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("expected fields detail for multiple errors")
	}
}

func TestValidateVar(t *testing.T) {
	if err := ValidateVar("address", "10.8.0.5", "vpnaddr"); err != nil {
		t.Errorf("expected valid address, got %v", err)
	}

	err := ValidateVar("address", "bogus", "vpnaddr")
	if err == nil {
		t.Fatal("expected error for bogus address")
	}
	if err.Error() != "address must be a valid IPv4 or IPv6 address" {
		t.Errorf("unexpected message %q", err.Error())
	}

	apiErr := err.ToAPIError()
	if apiErr.Details["field"] != "address" {
		t.Errorf("expected field detail 'address', got %v", apiErr.Details["field"])
	}
}
