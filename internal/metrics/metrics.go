// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh operations recorded under the "operation" label.
const (
	OpIdentities = "identities"
	OpIPMappings = "ip_mappings"
	OpEndpoints  = "ip_endpoints"
)

// Metadata fetch results recorded under the "result" label.
const (
	MetadataHit   = "hit"
	MetadataMiss  = "miss"
	MetadataError = "error"
)

var (
	// Reconciliation Metrics
	RefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vpnwatch_refresh_duration_seconds",
			Help:    "Duration of registry and cache refresh passes in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	RefreshErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpnwatch_refresh_errors_total",
			Help: "Total number of refresh passes that returned an error",
		},
		[]string{"operation"},
	)

	RefreshLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vpnwatch_refresh_last_success_timestamp",
			Help: "Unix timestamp of the last successful refresh pass",
		},
		[]string{"operation"},
	)

	RegistryIdentities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vpnwatch_registry_identities",
			Help: "Current number of identities in the registry",
		},
	)

	RegistryEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vpnwatch_registry_evictions_total",
			Help: "Total number of identities removed because they left the live listing",
		},
	)

	MetadataFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpnwatch_metadata_fetches_total",
			Help: "Total number of per-identity metadata fetches from the persistent store",
		},
		[]string{"result"}, // "hit", "miss", "error"
	)

	LiveSourceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpnwatch_live_source_errors_total",
			Help: "Total number of live source calls that failed and were treated as empty",
		},
		[]string{"call"}, // "list_identities", "statistics"
	)

	// IP Cache Metrics
	IPIdentityEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vpnwatch_ip_identity_cache_entries",
			Help: "Current number of entries in the IP to identity cache",
		},
	)

	IPIdentityEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vpnwatch_ip_identity_cache_evictions_total",
			Help: "Total number of IP to identity entries expired by TTL",
		},
	)

	IPIdentityLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpnwatch_ip_identity_lookups_total",
			Help: "Total number of single-address identity lookups",
		},
		[]string{"result"}, // "hit", "miss"
	)

	IPEndpointEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vpnwatch_ip_endpoint_entries",
			Help: "Number of IP to endpoint mappings in the last snapshot",
		},
	)

	InvalidAddresses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vpnwatch_invalid_virtual_addresses_total",
			Help: "Total number of malformed virtual addresses skipped",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected", "canceled"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Trigger Metrics
	TriggersPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpnwatch_triggers_published_total",
			Help: "Total number of refresh triggers published",
		},
		[]string{"topic"},
	)

	TriggersHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpnwatch_triggers_handled_total",
			Help: "Total number of refresh triggers handled by the router",
		},
		[]string{"topic", "result"}, // result: "success", "error"
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordRefresh records one refresh pass of the given operation.
func RecordRefresh(operation string, duration time.Duration, err error) {
	RefreshDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		RefreshErrors.WithLabelValues(operation).Inc()
		return
	}
	RefreshLastSuccess.WithLabelValues(operation).Set(float64(time.Now().Unix()))
}

// RecordMetadataFetch records the outcome of one metadata fetch.
func RecordMetadataFetch(result string) {
	MetadataFetches.WithLabelValues(result).Inc()
}

// RecordLiveSourceError records a live source call that was treated as empty.
func RecordLiveSourceError(call string) {
	LiveSourceErrors.WithLabelValues(call).Inc()
}

// UpdateRegistry sets the registry size and adds swept identities.
func UpdateRegistry(size, evicted int) {
	RegistryIdentities.Set(float64(size))
	if evicted > 0 {
		RegistryEvictions.Add(float64(evicted))
	}
}

// RecordIPIdentityEvictions adds TTL evictions from the IP to identity cache.
func RecordIPIdentityEvictions(n int) {
	IPIdentityEvictions.Add(float64(n))
}

// SetIPIdentityEntries sets the IP to identity cache size.
func SetIPIdentityEntries(n int) {
	IPIdentityEntries.Set(float64(n))
}

// RecordIPIdentityLookup records a single-address lookup.
func RecordIPIdentityLookup(hit bool) {
	if hit {
		IPIdentityLookups.WithLabelValues("hit").Inc()
		return
	}
	IPIdentityLookups.WithLabelValues("miss").Inc()
}

// SetIPEndpointEntries sets the size of the last endpoint snapshot.
func SetIPEndpointEntries(n int) {
	IPEndpointEntries.Set(float64(n))
}

// RecordInvalidAddresses adds skipped malformed virtual addresses.
func RecordInvalidAddresses(n int) {
	if n > 0 {
		InvalidAddresses.Add(float64(n))
	}
}

// RecordTriggerPublished records a published trigger.
func RecordTriggerPublished(topic string) {
	TriggersPublished.WithLabelValues(topic).Inc()
}

// RecordTriggerHandled records the outcome of handling a trigger.
func RecordTriggerHandled(topic string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	TriggersHandled.WithLabelValues(topic, result).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
