// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

// Package netaddr classifies textual IP addresses reported by the VPN daemon.
package netaddr

import (
	"net/netip"
	"strings"
)

// Family is the address family of a parsed address.
type Family int

const (
	// Invalid means the string is neither a strict IPv4 nor a strict IPv6 address.
	Invalid Family = iota
	IPv4
	IPv6
)

// String returns the family name.
func (f Family) String() string {
	switch f {
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	default:
		return "invalid"
	}
}

// Classify attempts a strict IPv4 parse, then a strict IPv6 parse.
// Zoned IPv6 addresses, CIDR prefixes and host:port forms are Invalid.
func Classify(s string) Family {
	if s == "" {
		return Invalid
	}
	if isIPv4(s) {
		return IPv4
	}
	if isIPv6(s) {
		return IPv6
	}
	return Invalid
}

// Valid reports whether s is an IPv4 or IPv6 address.
func Valid(s string) bool {
	return Classify(s) != Invalid
}

func isIPv4(s string) bool {
	if strings.Contains(s, ":") {
		return false
	}
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is4()
}

func isIPv6(s string) bool {
	if !strings.Contains(s, ":") {
		return false
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return false
	}
	return addr.Is6() && addr.Zone() == ""
}
