// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/vpnwatch/internal/logging"
)

// Trigger topics.
const (
	TopicProfilesUpdated    = "vpn.profiles.updated"
	TopicConnectionAccepted = "vpn.connection.accepted"
)

// Topics lists every trigger topic.
var Topics = []string{TopicProfilesUpdated, TopicConnectionAccepted}

// Trigger sources.
const (
	SourceScheduler = "scheduler"
	SourceAPI       = "api"
	SourceExternal  = "external"
)

// Trigger is the payload of a refresh trigger. The payload is informational;
// handlers act on the topic alone, so an empty body is also a valid trigger.
type Trigger struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Source    string    `json:"source,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTrigger creates a trigger with a fresh ID.
func NewTrigger(topic, source, reason string) Trigger {
	return Trigger{
		ID:        uuid.New().String(),
		Topic:     topic,
		Source:    source,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
}

// Message encodes t as a Watermill message. The correlation ID metadata is
// the short ID from the trigger, or from the caller's logging context when
// one is set.
func (t Trigger) Message(correlationID string) (*message.Message, error) {
	payload, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode trigger: %w", err)
	}

	msg := message.NewMessage(t.ID, payload)
	msg.Metadata.Set("source", t.Source)
	if correlationID == "" {
		correlationID = shortID(t.ID)
	}
	middleware.SetCorrelationID(correlationID, msg)
	return msg, nil
}

// DecodeTrigger decodes a message payload. An empty payload yields a
// trigger with only Topic and ID set.
func DecodeTrigger(topic string, msg *message.Message) (Trigger, error) {
	t := Trigger{ID: msg.UUID, Topic: topic}
	if len(msg.Payload) == 0 {
		return t, nil
	}
	if err := json.Unmarshal(msg.Payload, &t); err != nil {
		return Trigger{}, fmt.Errorf("decode trigger: %w", err)
	}
	if t.Topic == "" {
		t.Topic = topic
	}
	return t, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return logging.GenerateCorrelationID()
	}
	return id
}
