// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package events

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
)

func startEmbedded(t *testing.T) *EmbeddedServer {
	t.Helper()

	srv, err := NewEmbeddedServer(ServerConfig{Host: "127.0.0.1", Port: server.RANDOM_PORT})
	if err != nil {
		t.Fatalf("NewEmbeddedServer failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown failed: %v", err)
		}
	})
	return srv
}

func TestEmbeddedServer(t *testing.T) {
	srv := startEmbedded(t)
	if !srv.IsRunning() {
		t.Fatal("expected server to be running")
	}
	if srv.ClientURL() == "" {
		t.Fatal("expected client URL")
	}

	nc, err := natsgo.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	nc.Close()
}

func TestNATSBus_RouterRoundTrip(t *testing.T) {
	srv := startEmbedded(t)

	cfg := DefaultNATSConfig()
	cfg.URL = srv.ClientURL()
	cfg.CloseTimeout = time.Second
	bus, err := NewNATSBus(cfg, quietLogger())
	if err != nil {
		t.Fatalf("NewNATSBus failed: %v", err)
	}
	defer bus.Close()

	if bus.Transport() != TransportNATS {
		t.Errorf("expected transport nats, got %s", bus.Transport())
	}

	ref := newFakeRefresher()
	startRouter(t, bus, ref, fastRetry())

	publishUntilHandled(t, ref, TopicConnectionAccepted, func() error {
		_, err := bus.Publish(context.Background(), TopicConnectionAccepted, SourceExternal, "client-connect hook")
		return err
	})
}

// A connect hook on the VPN host can publish with a plain NATS client and
// an empty body.
func TestNATSBus_ExternalPublisher(t *testing.T) {
	srv := startEmbedded(t)

	cfg := DefaultNATSConfig()
	cfg.URL = srv.ClientURL()
	cfg.CloseTimeout = time.Second
	bus, err := NewNATSBus(cfg, quietLogger())
	if err != nil {
		t.Fatalf("NewNATSBus failed: %v", err)
	}
	defer bus.Close()

	ref := newFakeRefresher()
	startRouter(t, bus, ref, fastRetry())

	nc, err := natsgo.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()

	publishUntilHandled(t, ref, TopicProfilesUpdated, func() error {
		if err := nc.Publish(TopicProfilesUpdated, nil); err != nil {
			return err
		}
		return nc.Flush()
	})
}

// publishUntilHandled republishes until the handler runs. Core NATS drops
// messages published before the router's subscription reaches the server.
func publishUntilHandled(t *testing.T, ref *fakeRefresher, topic string, publish func() error) {
	t.Helper()

	deadline := time.After(10 * time.Second)
	for {
		if err := publish(); err != nil {
			t.Fatalf("publish %s: %v", topic, err)
		}
		select {
		case got := <-ref.calls:
			if got != topic {
				t.Fatalf("expected call for %s, got %s", topic, got)
			}
			return
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatalf("timed out waiting for %s", topic)
		}
	}
}
