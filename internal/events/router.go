// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/vpnwatch/internal/logging"
	"github.com/tomtom215/vpnwatch/internal/metrics"
)

// Refresher is the work a trigger causes. vpn.Service implements it.
type Refresher interface {
	RefreshIdentities(ctx context.Context) error
	RefreshIPMappings(ctx context.Context) error
}

// RouterConfig holds configuration for the Watermill Router.
type RouterConfig struct {
	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	// Retry configuration
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64
}

// DefaultRouterConfig returns production defaults for the Router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         10 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 500 * time.Millisecond,
		RetryMaxInterval:     10 * time.Second,
		RetryMultiplier:      2.0,
	}
}

// Router routes trigger topics to a Refresher.
type Router struct {
	config    RouterConfig
	bus       *Bus
	refresher Refresher
	logger    watermill.LoggerAdapter

	running   atomic.Bool
	ready     chan struct{}
	readyOnce sync.Once
}

// NewRouter creates a router. Nothing is subscribed until Run.
func NewRouter(cfg RouterConfig, bus *Bus, refresher Refresher, logger watermill.LoggerAdapter) *Router {
	if logger == nil {
		logger = NewLoggerAdapter()
	}
	return &Router{
		config:    cfg,
		bus:       bus,
		refresher: refresher,
		logger:    logger,
		ready:     make(chan struct{}),
	}
}

// Run subscribes to every trigger topic and blocks until ctx is canceled
// or the underlying router fails.
func (r *Router) Run(ctx context.Context) error {
	wr, err := r.build()
	if err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-wr.Running():
			r.running.Store(true)
			r.readyOnce.Do(func() { close(r.ready) })
		case <-done:
		}
	}()
	defer r.running.Store(false)

	if err := wr.Run(ctx); err != nil {
		return fmt.Errorf("event router: %w", err)
	}
	return ctx.Err()
}

// Ready is closed once the first Run has subscribed to every topic.
func (r *Router) Ready() <-chan struct{} {
	return r.ready
}

// IsRunning reports whether a Run is currently active.
func (r *Router) IsRunning() bool {
	return r.running.Load()
}

func (r *Router) build() (*message.Router, error) {
	wr, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: r.config.CloseTimeout,
	}, r.logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	// Middleware order (outer to inner): drop, Retry, Recoverer. A panic
	// becomes an error inside Retry and is retried like any other failure.
	wr.AddMiddleware(r.dropExhausted)
	if r.config.RetryMaxRetries > 0 {
		retry := middleware.Retry{
			MaxRetries:      r.config.RetryMaxRetries,
			InitialInterval: r.config.RetryInitialInterval,
			MaxInterval:     r.config.RetryMaxInterval,
			Multiplier:      r.config.RetryMultiplier,
			Logger:          r.logger,
		}
		wr.AddMiddleware(retry.Middleware)
	}
	wr.AddMiddleware(middleware.Recoverer)

	sub := r.bus.Subscriber()
	wr.AddConsumerHandler("refresh_identities", TopicProfilesUpdated, sub,
		r.handler(TopicProfilesUpdated, r.refresher.RefreshIdentities))
	wr.AddConsumerHandler("refresh_ip_mappings", TopicConnectionAccepted, sub,
		r.handler(TopicConnectionAccepted, r.refresher.RefreshIPMappings))

	return wr, nil
}

// dropExhausted acks a trigger whose retries are exhausted. Both
// transports would otherwise redeliver it immediately, and the next
// scheduled trigger repeats the same work anyway.
func (r *Router) dropExhausted(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		out, err := h(msg)
		if err != nil {
			r.logger.Error("Dropping trigger after retries", err, watermill.LogFields{
				"message_uuid": msg.UUID,
			})
			return nil, nil
		}
		return out, nil
	}
}

func (r *Router) handler(topic string, refresh func(context.Context) error) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		t, err := DecodeTrigger(topic, msg)
		if err != nil {
			// The topic is the instruction; a bad body does not stop the refresh.
			logging.Warn().Err(err).Str("topic", topic).Str("message_uuid", msg.UUID).Msg("Malformed trigger payload")
			t = Trigger{ID: msg.UUID, Topic: topic}
		}

		ctx := msg.Context()
		if id := middleware.MessageCorrelationID(msg); id != "" {
			ctx = logging.ContextWithCorrelationID(ctx, id)
		} else {
			ctx = logging.ContextWithNewCorrelationID(ctx)
		}
		ctx = logging.ContextWithTrigger(ctx, topic)

		start := time.Now()
		err = refresh(ctx)
		metrics.RecordTriggerHandled(topic, err)

		log := logging.Ctx(ctx)
		if err != nil {
			log.Error().Err(err).Str("trigger_id", t.ID).Str("source", t.Source).Msg("Refresh failed")
			return err
		}
		log.Debug().Str("trigger_id", t.ID).Str("source", t.Source).Dur("duration", time.Since(start)).Msg("Refresh complete")
		return nil
	}
}
