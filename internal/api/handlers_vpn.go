// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/vpnwatch/internal/events"
	"github.com/tomtom215/vpnwatch/internal/logging"
	"github.com/tomtom215/vpnwatch/internal/netaddr"
	"github.com/tomtom215/vpnwatch/internal/validation"
	"github.com/tomtom215/vpnwatch/internal/vpn"
)

// maxMetadataBody bounds PUT metadata request bodies.
const maxMetadataBody = 64 << 10

// MetadataRequest is the body of PUT /identities/{label}/metadata.
type MetadataRequest struct {
	Fields map[string]interface{} `json:"fields" validate:"required,min=1,max=64"`
}

// Identities lists every identity in the registry, sorted by label.
func (h *Handler) Identities(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	profiles := h.service.Identities()
	out := make([]IdentityResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, identityResponse(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })

	respondData(w, http.StatusOK, out, intPtr(len(out)), start)
}

// Identity returns one identity by label.
func (h *Handler) Identity(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	label, ok := h.labelParam(w, r)
	if !ok {
		return
	}

	p, found := h.service.Identity(label)
	if !found {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Identity not found", nil)
		return
	}

	respondData(w, http.StatusOK, identityResponse(p), nil, start)
}

// Profiles returns the reporting read model with live connections attached.
func (h *Handler) Profiles(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	views := h.service.Profiles(r.Context())
	respondData(w, http.StatusOK, views, intPtr(len(views)), start)
}

// IPMappings refreshes and returns the IP -> identity label table.
func (h *Handler) IPMappings(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	mappings := h.service.IPUniqueIDMappings(r.Context())
	respondData(w, http.StatusOK, mappings, intPtr(len(mappings)), start)
}

// IPLookup resolves a single address from the cache without refreshing.
func (h *Handler) IPLookup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	address := chi.URLParam(r, "address")
	if verr := validation.ValidateVar("address", address, "required,vpnaddr"); verr != nil {
		respondValidationError(w, verr)
		return
	}

	label, found := h.service.LookupIP(address)
	if !found {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Address is not attributed to an identity", nil)
		return
	}

	respondData(w, http.StatusOK, IPLookupResponse{
		Address: address,
		Family:  netaddr.Classify(address).String(),
		Label:   label,
	}, nil, start)
}

// IPEndpoints returns the IP -> real endpoint table of live sessions.
func (h *Handler) IPEndpoints(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	mappings := h.service.IPEndpointMappings(r.Context())
	respondData(w, http.StatusOK, mappings, intPtr(len(mappings)), start)
}

// RefreshIdentities publishes a profiles.updated trigger.
func (h *Handler) RefreshIdentities(w http.ResponseWriter, r *http.Request) {
	h.publish(w, r, events.TopicProfilesUpdated, "manual refresh")
}

// RefreshIPMappings publishes a connection.accepted trigger.
func (h *Handler) RefreshIPMappings(w http.ResponseWriter, r *http.Request) {
	h.publish(w, r, events.TopicConnectionAccepted, "manual refresh")
}

// SetMetadata merges fields into an identity's persisted metadata and
// triggers an identity refresh so the registry picks them up.
func (h *Handler) SetMetadata(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	label, ok := h.labelParam(w, r)
	if !ok {
		return
	}

	var req MetadataRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMetadataBody)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be a JSON object", nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, verr)
		return
	}

	fields, err := vpn.EncodeMetadata(vpn.Settings(req.Fields))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "Metadata values must be JSON encodable", err)
		return
	}

	key := vpn.NewProfile(label).StoreKey()
	if err := h.store.SetMetadata(r.Context(), key, fields); err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to store metadata", err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("label", sanitizeLogValue(label)).
		Int("fields", len(fields)).
		Msg("Metadata updated")

	h.publishAfterWrite(r, label)
	respondData(w, http.StatusOK, map[string]interface{}{
		"label":     label,
		"store_key": key,
		"fields":    fields,
	}, intPtr(len(fields)), start)
}

// DeleteMetadata removes the fields named by repeated ?field= parameters, or
// every field when none are named.
func (h *Handler) DeleteMetadata(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	label, ok := h.labelParam(w, r)
	if !ok {
		return
	}

	names := r.URL.Query()["field"]
	key := vpn.NewProfile(label).StoreKey()
	if err := h.store.DeleteMetadata(r.Context(), key, names...); err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to delete metadata", err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("label", sanitizeLogValue(label)).
		Strs("fields", names).
		Msg("Metadata deleted")

	h.publishAfterWrite(r, label)
	respondData(w, http.StatusOK, map[string]interface{}{
		"label":     label,
		"store_key": key,
		"deleted":   names,
	}, nil, start)
}

func (h *Handler) labelParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	label := chi.URLParam(r, "label")
	if verr := validation.ValidateVar("label", label, "required,vpnlabel"); verr != nil {
		respondValidationError(w, verr)
		return "", false
	}
	return label, true
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request, topic, reason string) {
	start := time.Now()

	trigger, err := h.publisher.Publish(r.Context(), topic, events.SourceAPI, reason)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "EVENTS_ERROR", "Failed to publish refresh trigger", err)
		return
	}

	respondData(w, http.StatusAccepted, TriggerResponse{
		TriggerID: trigger.ID,
		Topic:     trigger.Topic,
	}, nil, start)
}

// publishAfterWrite triggers an identity refresh. The write already
// succeeded, so a publish failure is logged and the next scheduled pass
// picks the change up.
func (h *Handler) publishAfterWrite(r *http.Request, label string) {
	if _, err := h.publisher.Publish(r.Context(), events.TopicProfilesUpdated, events.SourceAPI, "metadata changed: "+label); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to publish refresh after metadata change")
	}
}

func identityResponse(p *vpn.Profile) IdentityResponse {
	resp := IdentityResponse{
		Label:          p.Label(),
		UniqueID:       p.UniqueID(),
		Namespace:      p.Namespace(),
		StoreKey:       p.StoreKey(),
		DisplayName:    p.DisplayName(),
		NetworkProfile: p.NetworkProfile(),
		Settings:       p.Settings(),
		Metadata:       p.Metadata(),
		Connections:    len(p.Connections()),
	}
	if last, ok := p.LastActiveTimestamp(); ok {
		resp.LastActive = &last
	}
	return resp
}
