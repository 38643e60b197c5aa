// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package api

import (
	"context"
	"net/http"
	"time"
)

// healthCheckTimeout bounds the store ping of the readiness probe.
const healthCheckTimeout = 2 * time.Second

// HealthLive handles liveness probe requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style)
// Returns 200 OK only when the metadata store answers and, if one is
// configured, the trigger router is consuming.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	components := map[string]string{
		"store":  "ok",
		"events": "ok",
	}
	ready := true

	if h.store == nil || h.store.Ping(ctx) != nil {
		components["store"] = "unavailable"
		ready = false
	}

	routerRunning := h.router == nil || h.router.IsRunning()
	if !routerRunning {
		components["events"] = "stopped"
		ready = false
	}

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondJSON(w, statusCode, &APIResponse{
		Status: status,
		Data: HealthStatus{
			Status:        status,
			Version:       Version,
			Uptime:        time.Since(h.startTime).Seconds(),
			Identities:    len(h.service.Identities()),
			Components:    components,
			EventsRunning: routerRunning,
		},
		Metadata: Metadata{
			Timestamp: time.Now(),
		},
	})
}
