// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

/*
Package openvpn implements vpn.LiveSource on top of an OpenVPN server.

Two sources are provided:

  - FileSource reads the file written by the server's --status option
  - ManagementSource asks the management interface for "status 3"

Both list identities from a profile directory of <label>.settings.json files
(see ProfileDir) and parse sessions with ParseStatus, which understands
status-version 1, 2 and 3.

# Status Parsing

A session is one CLIENT_LIST row. Its virtual addresses are the row's IPv4
and IPv6 pool addresses plus every ROUTING_TABLE address routed to the same
common name and real address. LastActive is the newest routing table
"Last Ref" of the session, falling back to "Connected Since".

# Resilience

ManagementClient wraps every status request in a gobreaker circuit breaker
named "openvpn-management", so a dead management socket fails fast instead
of holding up every refresh for the dial timeout.
*/
package openvpn
