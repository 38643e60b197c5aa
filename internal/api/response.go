// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package api

import (
	"time"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	Count       *int      `json:"count,omitempty"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError represents an error response with structured error details.
//
// Common error codes:
//   - VALIDATION_ERROR: invalid path or body
//   - NOT_FOUND: unknown identity or unmapped address
//   - STORE_ERROR: metadata store failure
//   - EVENTS_ERROR: trigger could not be published
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// IdentityResponse is the API shape of one registry identity.
type IdentityResponse struct {
	Label          string                 `json:"label"`
	UniqueID       string                 `json:"unique_id"`
	Namespace      string                 `json:"namespace"`
	StoreKey       string                 `json:"store_key"`
	DisplayName    string                 `json:"display_name"`
	NetworkProfile string                 `json:"network_profile"`
	Settings       map[string]interface{} `json:"settings"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	Connections    int                    `json:"connections"`
	LastActive     *time.Time             `json:"last_active"`
}

// IPLookupResponse is the result of a single address lookup.
type IPLookupResponse struct {
	Address string `json:"address"`
	Family  string `json:"family"`
	Label   string `json:"label"`
}

// TriggerResponse acknowledges a published refresh trigger.
type TriggerResponse struct {
	TriggerID string `json:"trigger_id"`
	Topic     string `json:"topic"`
}

// HealthStatus is the body of the readiness check.
type HealthStatus struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	Uptime        float64           `json:"uptime_seconds"`
	Identities    int               `json:"identities"`
	Components    map[string]string `json:"components"`
	EventsRunning bool              `json:"events_running"`
}
