// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package services

import (
	"context"
	"fmt"
)

// Runner is satisfied by *events.Router: Run blocks until ctx is canceled
// and may be called again after it returns.
type Runner interface {
	Run(ctx context.Context) error
}

// EventRouterService supervises the trigger router. A router failure
// returns an error and suture restarts it with a fresh subscription.
type EventRouterService struct {
	runner Runner
	name   string
}

// NewEventRouterService wraps runner.
func NewEventRouterService(runner Runner) *EventRouterService {
	return &EventRouterService{
		runner: runner,
		name:   "event-router",
	}
}

// Serve implements suture.Service.
func (s *EventRouterService) Serve(ctx context.Context) error {
	err := s.runner.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("event router failed: %w", err)
	}
	return fmt.Errorf("event router stopped unexpectedly")
}

// String implements fmt.Stringer for suture logging.
func (s *EventRouterService) String() string {
	return s.name
}
