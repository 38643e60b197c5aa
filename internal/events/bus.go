// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/vpnwatch/internal/logging"
	"github.com/tomtom215/vpnwatch/internal/metrics"
)

// Transport names.
const (
	TransportChannel = "gochannel"
	TransportNATS    = "nats"
)

// ErrBusClosed is returned by Publish after Close.
var ErrBusClosed = errors.New("event bus is closed")

// Bus publishes and subscribes to trigger topics.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	transport  string
	logger     watermill.LoggerAdapter

	mu      sync.RWMutex
	closed  bool
	closers []func() error
}

// NewChannelBus creates an in-process bus.
func NewChannelBus(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = NewLoggerAdapter()
	}
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 16,
	}, logger)

	return &Bus{
		publisher:  ch,
		subscriber: ch,
		transport:  TransportChannel,
		logger:     logger,
		closers:    []func() error{ch.Close},
	}
}

// NATSConfig configures a NATS bus.
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
	CloseTimeout  time.Duration
}

// DefaultNATSConfig returns defaults for a local broker.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           natsgo.DefaultURL,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		CloseTimeout:  10 * time.Second,
	}
}

// NewNATSBus creates a bus over core NATS.
func NewNATSBus(cfg NATSConfig, logger watermill.LoggerAdapter) (*Bus, error) {
	if logger == nil {
		logger = NewLoggerAdapter()
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 10 * time.Second
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("vpnwatch"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		SubscribersCount: 1,
		CloseTimeout:     cfg.CloseTimeout,
		AckWaitTimeout:   30 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create nats subscriber: %w", err)
	}

	return &Bus{
		publisher:  pub,
		subscriber: sub,
		transport:  TransportNATS,
		logger:     logger,
		closers:    []func() error{sub.Close, pub.Close},
	}, nil
}

// Transport returns the transport name.
func (b *Bus) Transport() string {
	return b.transport
}

// Publish sends a trigger for topic. The correlation ID of ctx, if any, is
// carried to the handler.
func (b *Bus) Publish(ctx context.Context, topic, source, reason string) (Trigger, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return Trigger{}, ErrBusClosed
	}

	t := NewTrigger(topic, source, reason)
	msg, err := t.Message(logging.CorrelationIDFromContext(ctx))
	if err != nil {
		return Trigger{}, err
	}
	if err := b.publisher.Publish(topic, msg); err != nil {
		return Trigger{}, fmt.Errorf("publish %s: %w", topic, err)
	}

	metrics.RecordTriggerPublished(topic)
	logging.Ctx(ctx).Debug().Str("topic", topic).Str("source", source).Str("trigger_id", t.ID).Msg("Trigger published")
	return t, nil
}

// Subscriber returns the subscriber side. Closing it is a no-op; the bus
// owns its lifetime.
func (b *Bus) Subscriber() message.Subscriber {
	return nopCloseSubscriber{b.subscriber}
}

// Close closes the publisher and subscriber.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	for _, c := range b.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nopCloseSubscriber struct {
	message.Subscriber
}

func (nopCloseSubscriber) Close() error { return nil }
