// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/vpnwatch/internal/events"
)

type recordingPublisher struct {
	mu       sync.Mutex
	reasons  []string
	err      error
	notified chan struct{}
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{notified: make(chan struct{}, 16)}
}

func (p *recordingPublisher) Publish(ctx context.Context, topic, source, reason string) (events.Trigger, error) {
	p.mu.Lock()
	p.reasons = append(p.reasons, reason)
	err := p.err
	p.mu.Unlock()

	select {
	case p.notified <- struct{}{}:
	default:
	}
	if err != nil {
		return events.Trigger{}, err
	}
	return events.NewTrigger(topic, source, reason), nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.reasons)
}

func (p *recordingPublisher) wait(t *testing.T) {
	t.Helper()
	select {
	case <-p.notified:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a publish")
	}
}

func TestSchedulerService_OnStartup(t *testing.T) {
	pub := newRecordingPublisher()
	svc := NewSchedulerService(pub, SchedulerConfig{
		Topic:     events.TopicProfilesUpdated,
		OnStartup: true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	pub.wait(t)
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if pub.count() != 1 {
		t.Errorf("expected 1 publish with ticking disabled, got %d", pub.count())
	}
	if pub.reasons[0] != "startup" {
		t.Errorf("expected reason startup, got %q", pub.reasons[0])
	}
	if svc.String() != "scheduler:vpn.profiles.updated" {
		t.Errorf("unexpected name %q", svc.String())
	}
}

func TestSchedulerService_Interval(t *testing.T) {
	pub := newRecordingPublisher()
	svc := NewSchedulerService(pub, SchedulerConfig{
		Topic:    events.TopicConnectionAccepted,
		Interval: 20 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Serve(ctx) }()

	pub.wait(t)
	pub.wait(t)
	if pub.count() < 2 {
		t.Errorf("expected at least 2 publishes, got %d", pub.count())
	}
}

func TestSchedulerService_PublishErrors(t *testing.T) {
	t.Run("transient error keeps ticking", func(t *testing.T) {
		pub := newRecordingPublisher()
		pub.err = errors.New("nats: timeout")
		svc := NewSchedulerService(pub, SchedulerConfig{
			Topic:     events.TopicConnectionAccepted,
			Interval:  10 * time.Millisecond,
			OnStartup: true,
		})

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		pub.wait(t)
		pub.wait(t)
		cancel()
		if err := <-errCh; !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("closed bus ends the service", func(t *testing.T) {
		pub := newRecordingPublisher()
		pub.err = events.ErrBusClosed
		svc := NewSchedulerService(pub, SchedulerConfig{
			Topic:     events.TopicConnectionAccepted,
			OnStartup: true,
		})

		if err := svc.Serve(context.Background()); !errors.Is(err, events.ErrBusClosed) {
			t.Errorf("expected ErrBusClosed, got %v", err)
		}
	})
}

type fakeRunner struct {
	runs atomic.Int32
	err  error
}

func (r *fakeRunner) Run(ctx context.Context) error {
	r.runs.Add(1)
	if r.err != nil {
		return r.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestEventRouterService(t *testing.T) {
	t.Run("returns context error on shutdown", func(t *testing.T) {
		runner := &fakeRunner{}
		svc := NewEventRouterService(runner)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}
	})

	t.Run("wraps router failure", func(t *testing.T) {
		runErr := errors.New("subscribe failed")
		svc := NewEventRouterService(&fakeRunner{err: runErr})

		if err := svc.Serve(context.Background()); !errors.Is(err, runErr) {
			t.Errorf("expected %v, got %v", runErr, err)
		}
	})

	t.Run("restarted by supervisor", func(t *testing.T) {
		runner := &fakeRunner{err: errors.New("boom")}
		sup := suture.New("test", suture.Spec{
			FailureThreshold: 10,
			FailureBackoff:   time.Millisecond,
			Timeout:          time.Second,
		})
		sup.Add(NewEventRouterService(runner))

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		<-sup.ServeBackground(ctx)

		if runner.runs.Load() < 2 {
			t.Errorf("expected router to be restarted, got %d runs", runner.runs.Load())
		}
	})
}

type fakeNATSServer struct{ running atomic.Bool }

func (s *fakeNATSServer) IsRunning() bool { return s.running.Load() }

func TestEmbeddedNATSService(t *testing.T) {
	server := &fakeNATSServer{}
	server.running.Store(true)
	svc := NewEmbeddedNATSService(server, 10*time.Millisecond)

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(context.Background()) }()

	time.Sleep(30 * time.Millisecond)
	server.running.Store(false)

	select {
	case err := <-errCh:
		if !errors.Is(err, suture.ErrTerminateSupervisorTree) {
			t.Errorf("expected ErrTerminateSupervisorTree, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected service to stop when server stops")
	}
}

type countingPruner struct{ calls atomic.Int32 }

func (p *countingPruner) PruneIPMappings() int {
	p.calls.Add(1)
	return 1
}

func TestCachePruneService(t *testing.T) {
	pruner := &countingPruner{}
	svc := NewCachePruneService(pruner, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if pruner.calls.Load() < 2 {
		t.Errorf("expected repeated pruning, got %d calls", pruner.calls.Load())
	}
	if NewCachePruneService(pruner, 0).interval != time.Minute {
		t.Error("expected default interval of 1m")
	}
}
