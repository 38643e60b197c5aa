// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

/*
Package metrics provides Prometheus metrics for vpnwatch.

All collectors are registered on the default registry through promauto and
exposed at /metrics by the API server:

	curl http://localhost:8089/metrics

# Available Metrics

Reconciliation:
  - vpnwatch_refresh_duration_seconds{operation}
  - vpnwatch_refresh_errors_total{operation}
  - vpnwatch_registry_identities
  - vpnwatch_metadata_fetches_total{result}
  - vpnwatch_live_source_errors_total{call}

IP caches:
  - vpnwatch_ip_identity_cache_entries
  - vpnwatch_ip_identity_cache_evictions_total
  - vpnwatch_ip_endpoint_entries
  - vpnwatch_invalid_virtual_addresses_total

Management interface:
  - circuit_breaker_state{name}
  - circuit_breaker_requests_total{name,result}

Callers use the Record* and Set* helpers rather than touching collectors
directly.
*/
package metrics
