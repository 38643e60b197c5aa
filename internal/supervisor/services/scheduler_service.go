// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package services

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/vpnwatch/internal/events"
	"github.com/tomtom215/vpnwatch/internal/logging"
)

// TriggerPublisher is satisfied by *events.Bus.
type TriggerPublisher interface {
	Publish(ctx context.Context, topic, source, reason string) (events.Trigger, error)
}

// SchedulerConfig configures one periodic trigger.
type SchedulerConfig struct {
	Topic    string
	Interval time.Duration

	// OnStartup publishes once as soon as Serve starts.
	OnStartup bool

	// Ready, when set, holds back every publish until it is closed. Wire it
	// to the consuming router's Ready so the startup trigger has a subscriber.
	Ready <-chan struct{}
}

// SchedulerService publishes a refresh trigger on a fixed interval. It does
// not run the refresh itself: the event router does, so scheduled and
// externally published triggers share one code path.
type SchedulerService struct {
	publisher TriggerPublisher
	config    SchedulerConfig
	name      string
}

// NewSchedulerService creates a scheduler for config.Topic. A non-positive
// interval disables ticking; OnStartup still applies.
func NewSchedulerService(publisher TriggerPublisher, config SchedulerConfig) *SchedulerService {
	return &SchedulerService{
		publisher: publisher,
		config:    config,
		name:      "scheduler:" + config.Topic,
	}
}

// Serve implements suture.Service. Publish failures are logged and the next
// tick retries; a closed bus ends the service.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if s.config.Ready != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.config.Ready:
		}
	}

	if s.config.OnStartup {
		if err := s.publish(ctx, "startup"); err != nil {
			return err
		}
	}

	if s.config.Interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.publish(ctx, "interval"); err != nil {
				return err
			}
		}
	}
}

func (s *SchedulerService) publish(ctx context.Context, reason string) error {
	_, err := s.publisher.Publish(ctx, s.config.Topic, events.SourceScheduler, reason)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, events.ErrBusClosed):
		return err
	default:
		logging.Warn().Err(err).Str("topic", s.config.Topic).Msg("Scheduled trigger publish failed")
		return nil
	}
}

// String implements fmt.Stringer for suture logging.
func (s *SchedulerService) String() string {
	return s.name
}
