// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRefresh(t *testing.T) {
	beforeErr := testutil.ToFloat64(RefreshErrors.WithLabelValues(OpIdentities))

	RecordRefresh(OpIdentities, 10*time.Millisecond, nil)
	if got := testutil.ToFloat64(RefreshLastSuccess.WithLabelValues(OpIdentities)); got == 0 {
		t.Error("expected last success timestamp to be set")
	}

	RecordRefresh(OpIdentities, 10*time.Millisecond, errors.New("store down"))
	if got := testutil.ToFloat64(RefreshErrors.WithLabelValues(OpIdentities)); got != beforeErr+1 {
		t.Errorf("expected errors %v, got %v", beforeErr+1, got)
	}
}

func TestRecordMetadataFetch(t *testing.T) {
	for _, result := range []string{MetadataHit, MetadataMiss, MetadataError} {
		t.Run(result, func(t *testing.T) {
			before := testutil.ToFloat64(MetadataFetches.WithLabelValues(result))
			RecordMetadataFetch(result)
			if got := testutil.ToFloat64(MetadataFetches.WithLabelValues(result)); got != before+1 {
				t.Errorf("expected %v, got %v", before+1, got)
			}
		})
	}
}

func TestUpdateRegistry(t *testing.T) {
	before := testutil.ToFloat64(RegistryEvictions)

	UpdateRegistry(5, 2)
	if got := testutil.ToFloat64(RegistryIdentities); got != 5 {
		t.Errorf("expected registry size 5, got %v", got)
	}
	if got := testutil.ToFloat64(RegistryEvictions); got != before+2 {
		t.Errorf("expected evictions %v, got %v", before+2, got)
	}

	UpdateRegistry(3, 0)
	if got := testutil.ToFloat64(RegistryEvictions); got != before+2 {
		t.Errorf("expected evictions unchanged at %v, got %v", before+2, got)
	}
}

func TestIPCacheMetrics(t *testing.T) {
	beforeEvict := testutil.ToFloat64(IPIdentityEvictions)
	beforeHit := testutil.ToFloat64(IPIdentityLookups.WithLabelValues("hit"))
	beforeInvalid := testutil.ToFloat64(InvalidAddresses)

	SetIPIdentityEntries(7)
	RecordIPIdentityEvictions(3)
	RecordIPIdentityLookup(true)
	SetIPEndpointEntries(4)
	RecordInvalidAddresses(0)
	RecordInvalidAddresses(2)

	if got := testutil.ToFloat64(IPIdentityEntries); got != 7 {
		t.Errorf("expected 7 entries, got %v", got)
	}
	if got := testutil.ToFloat64(IPIdentityEvictions); got != beforeEvict+3 {
		t.Errorf("expected evictions %v, got %v", beforeEvict+3, got)
	}
	if got := testutil.ToFloat64(IPIdentityLookups.WithLabelValues("hit")); got != beforeHit+1 {
		t.Errorf("expected hits %v, got %v", beforeHit+1, got)
	}
	if got := testutil.ToFloat64(IPEndpointEntries); got != 4 {
		t.Errorf("expected 4 endpoint entries, got %v", got)
	}
	if got := testutil.ToFloat64(InvalidAddresses); got != beforeInvalid+2 {
		t.Errorf("expected invalid %v, got %v", beforeInvalid+2, got)
	}
}

func TestRecordTriggerHandled(t *testing.T) {
	topic := "vpn.profiles.updated"
	beforeOK := testutil.ToFloat64(TriggersHandled.WithLabelValues(topic, "success"))
	beforeErr := testutil.ToFloat64(TriggersHandled.WithLabelValues(topic, "error"))

	RecordTriggerHandled(topic, nil)
	RecordTriggerHandled(topic, errors.New("boom"))

	if got := testutil.ToFloat64(TriggersHandled.WithLabelValues(topic, "success")); got != beforeOK+1 {
		t.Errorf("expected success %v, got %v", beforeOK+1, got)
	}
	if got := testutil.ToFloat64(TriggersHandled.WithLabelValues(topic, "error")); got != beforeErr+1 {
		t.Errorf("expected error %v, got %v", beforeErr+1, got)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/vpn/identities", "200"))
	RecordAPIRequest("GET", "/api/v1/vpn/identities", 200, time.Millisecond)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/vpn/identities", "200")); got != before+1 {
		t.Errorf("expected %v, got %v", before+1, got)
	}
}

// TestMetricGathering tests that metrics can be gathered using testutil
func TestMetricGathering(t *testing.T) {
	RecordRefresh(OpIPMappings, time.Millisecond, nil)

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Logf("Lint errors (may be expected): %v", err)
	}
	for _, p := range problems {
		t.Logf("Metric lint problem: %s", p.Text)
	}
}
