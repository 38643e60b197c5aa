// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package openvpn

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/vpnwatch/internal/logging"
	"github.com/tomtom215/vpnwatch/internal/metrics"
	"github.com/tomtom215/vpnwatch/internal/vpn"
)

// ErrManagementClosed is returned when the management interface closes the
// connection before a complete response was read.
var ErrManagementClosed = errors.New("openvpn management connection closed")

// BreakerName is the circuit breaker name used in metrics and logs.
const BreakerName = "openvpn-management"

const (
	passwordPrompt = "ENTER PASSWORD:"
	statusCommand  = "status 3"
)

// ManagementConfig configures a ManagementClient.
type ManagementConfig struct {
	// Address is "host:port", "tcp://host:port", "unix:///path" or an
	// absolute socket path.
	Address string

	// Password answers the management password prompt, if one is configured.
	Password string

	// Timeout bounds one complete status exchange.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures that opens the
	// breaker. Zero means 5.
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open before probing.
	// Zero means 30s.
	OpenTimeout time.Duration
}

// ManagementClient talks to the OpenVPN management interface. Each call
// opens a fresh connection so a restarted daemon is picked up transparently.
type ManagementClient struct {
	cfg     ManagementConfig
	network string
	address string
	dialer  net.Dialer
	cb      *gobreaker.CircuitBreaker[[]byte]
	name    string
}

// NewManagementClient creates a client guarded by a circuit breaker.
func NewManagementClient(cfg ManagementConfig) *ManagementClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	network, address := splitAddress(cfg.Address)
	c := &ManagementClient{
		cfg:     cfg,
		network: network,
		address: address,
		name:    BreakerName,
	}

	metrics.CircuitBreakerState.WithLabelValues(c.name).Set(0)

	threshold := cfg.FailureThreshold
	c.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        c.name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			shouldTrip := counts.ConsecutiveFailures >= threshold
			if shouldTrip {
				logging.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},
		// A caller walking away says nothing about the daemon.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return c
}

// State returns the breaker state.
func (c *ManagementClient) State() gobreaker.State {
	return c.cb.State()
}

// Status returns the raw "status 3" response, up to and including END.
func (c *ManagementClient) Status(ctx context.Context) ([]byte, error) {
	out, err := c.cb.Execute(func() ([]byte, error) {
		return c.fetchStatus(ctx)
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "rejected").Inc()
			logging.Ctx(ctx).Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		} else if errors.Is(err, context.Canceled) {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "canceled").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "failure").Inc()
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(c.name, "success").Inc()
	return out, nil
}

func (c *ManagementClient) fetchStatus(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	conn, err := c.dialer.DialContext(ctx, c.network, c.address)
	if err != nil {
		return nil, fmt.Errorf("dial management %s: %w", c.cfg.Address, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	r := bufio.NewReader(conn)

	if c.cfg.Password != "" {
		if err := c.authenticate(r, conn); err != nil {
			return nil, c.wrapErr(ctx, err)
		}
	}

	if _, err := io.WriteString(conn, statusCommand+"\n"); err != nil {
		return nil, c.wrapErr(ctx, fmt.Errorf("send status: %w", err))
	}

	var buf bytes.Buffer
	for {
		line, err := readLine(r)
		if err != nil {
			return nil, c.wrapErr(ctx, err)
		}
		switch {
		case strings.HasPrefix(line, ">"):
			// Real-time notification interleaved with the response.
			continue
		case strings.HasPrefix(line, "ERROR:"):
			return nil, fmt.Errorf("management: %s", strings.TrimSpace(strings.TrimPrefix(line, "ERROR:")))
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
		if line == "END" {
			_, _ = io.WriteString(conn, "quit\n")
			return buf.Bytes(), nil
		}
	}
}

// authenticate waits for the password prompt, which is not newline
// terminated, answers it and waits for SUCCESS.
func (c *ManagementClient) authenticate(r *bufio.Reader, w io.Writer) error {
	var seen strings.Builder
	for !strings.HasSuffix(seen.String(), passwordPrompt) {
		b, err := r.ReadByte()
		if err != nil {
			return closedErr(err)
		}
		seen.WriteByte(b)
		if b == '\n' {
			seen.Reset()
		}
	}

	if _, err := io.WriteString(w, c.cfg.Password+"\n"); err != nil {
		return fmt.Errorf("send password: %w", err)
	}

	for {
		line, err := readLine(r)
		if err != nil {
			return err
		}
		switch {
		case strings.HasPrefix(line, "SUCCESS:"):
			return nil
		case strings.HasPrefix(line, "ERROR:"):
			return fmt.Errorf("management authentication failed: %s", strings.TrimSpace(strings.TrimPrefix(line, "ERROR:")))
		}
	}
}

// wrapErr prefers the context error over the I/O error it caused.
func (c *ManagementClient) wrapErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("management %s: %w", c.cfg.Address, ctxErr)
	}
	return err
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", closedErr(err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func closedErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return ErrManagementClosed
	}
	return err
}

func splitAddress(addr string) (network, address string) {
	switch {
	case strings.HasPrefix(addr, "unix://"):
		return "unix", strings.TrimPrefix(addr, "unix://")
	case strings.HasPrefix(addr, "tcp://"):
		return "tcp", strings.TrimPrefix(addr, "tcp://")
	case strings.HasPrefix(addr, "/"):
		return "unix", addr
	default:
		return "tcp", addr
	}
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ManagementSource reads sessions from the management interface.
type ManagementSource struct {
	*ProfileDir
	client *ManagementClient
	loc    *time.Location
}

// NewManagementSource creates a source over client and profileDir.
func NewManagementSource(client *ManagementClient, profileDir string) *ManagementSource {
	return &ManagementSource{
		ProfileDir: NewProfileDir(profileDir),
		client:     client,
		loc:        time.Local,
	}
}

// Statistics asks the daemon for its current status.
func (s *ManagementSource) Statistics(ctx context.Context) (*vpn.Statistics, error) {
	raw, err := s.client.Status(ctx)
	if err != nil {
		return nil, err
	}
	return ParseStatus(bytes.NewReader(raw), s.loc)
}

var _ vpn.LiveSource = (*ManagementSource)(nil)
