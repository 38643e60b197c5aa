// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package openvpn

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// fakeManagement serves a scripted management interface on a loopback port.
type fakeManagement struct {
	ln       net.Listener
	password string
	status   string
	hangup   bool // close before END

	mu       sync.Mutex
	commands []string
	wg       sync.WaitGroup
}

func startFakeManagement(t *testing.T, f *fakeManagement) *fakeManagement {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f.ln = ln

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			f.wg.Add(1)
			go func() {
				defer f.wg.Done()
				f.serve(conn)
			}()
		}
	}()

	t.Cleanup(func() {
		ln.Close()
		f.wg.Wait()
	})
	return f
}

func (f *fakeManagement) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)

	if f.password != "" {
		io.WriteString(conn, "ENTER PASSWORD:")
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		if strings.TrimSpace(line) != f.password {
			io.WriteString(conn, "ERROR: bad password\r\n")
			return
		}
		io.WriteString(conn, "SUCCESS: password is correct\r\n")
	}
	io.WriteString(conn, ">INFO:OpenVPN Management Interface Version 5 -- type 'help' for more info\r\n")

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimSpace(line)
		f.mu.Lock()
		f.commands = append(f.commands, cmd)
		f.mu.Unlock()

		switch cmd {
		case "status 3":
			body := strings.ReplaceAll(f.status, "\n", "\r\n")
			if f.hangup {
				body = body[:len(body)/2]
				io.WriteString(conn, body)
				return
			}
			io.WriteString(conn, ">BYTECOUNT:1,2\r\n"+body)
		case "quit":
			return
		default:
			io.WriteString(conn, "ERROR: unknown command\r\n")
		}
	}
}

func (f *fakeManagement) addr() string {
	return f.ln.Addr().String()
}

func (f *fakeManagement) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func TestManagementClient_Status(t *testing.T) {
	t.Parallel()

	f := startFakeManagement(t, &fakeManagement{status: strings.ReplaceAll(statusV2, ",", "\t")})
	c := NewManagementClient(ManagementConfig{Address: "tcp://" + f.addr(), Timeout: 2 * time.Second})

	raw, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if strings.Contains(string(raw), ">BYTECOUNT") {
		t.Error("expected notifications to be filtered")
	}
	if !strings.HasSuffix(string(raw), "END\n") {
		t.Errorf("expected response to end with END, got %q", raw)
	}

	cmds := f.seen()
	if len(cmds) == 0 || cmds[0] != "status 3" {
		t.Errorf("expected first command 'status 3', got %v", cmds)
	}
}

func TestManagementClient_Password(t *testing.T) {
	t.Parallel()

	f := startFakeManagement(t, &fakeManagement{password: "s3cret", status: statusV2})

	good := NewManagementClient(ManagementConfig{Address: f.addr(), Password: "s3cret", Timeout: 2 * time.Second})
	if _, err := good.Status(context.Background()); err != nil {
		t.Fatalf("expected authenticated status to succeed: %v", err)
	}

	bad := NewManagementClient(ManagementConfig{Address: f.addr(), Password: "wrong", Timeout: 2 * time.Second})
	_, err := bad.Status(context.Background())
	if err == nil || !strings.Contains(err.Error(), "authentication failed") {
		t.Errorf("expected authentication failure, got %v", err)
	}
}

func TestManagementClient_Hangup(t *testing.T) {
	t.Parallel()

	f := startFakeManagement(t, &fakeManagement{status: statusV2, hangup: true})
	c := NewManagementClient(ManagementConfig{Address: f.addr(), Timeout: 2 * time.Second})

	_, err := c.Status(context.Background())
	if !errors.Is(err, ErrManagementClosed) {
		t.Errorf("expected ErrManagementClosed, got %v", err)
	}
}

func TestManagementClient_BreakerOpens(t *testing.T) {
	t.Parallel()

	// Grab a free port, then close it so dials are refused.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	c := NewManagementClient(ManagementConfig{
		Address:          addr,
		Timeout:          time.Second,
		FailureThreshold: 2,
		OpenTimeout:      time.Hour,
	})

	for i := 0; i < 2; i++ {
		if _, err := c.Status(context.Background()); err == nil {
			t.Fatal("expected dial failure")
		}
	}
	if c.State() != gobreaker.StateOpen {
		t.Fatalf("expected breaker open, got %v", c.State())
	}

	_, err = c.Status(context.Background())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
}

func TestManagementClient_CanceledCallsDoNotTrip(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	c := NewManagementClient(ManagementConfig{
		Address:          addr,
		Timeout:          time.Second,
		FailureThreshold: 2,
		OpenTimeout:      time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 5; i++ {
		if _, err := c.Status(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	}
	if c.State() != gobreaker.StateClosed {
		t.Errorf("expected breaker closed after canceled calls, got %v", c.State())
	}
}

func TestManagementSource(t *testing.T) {
	t.Parallel()

	f := startFakeManagement(t, &fakeManagement{status: strings.ReplaceAll(statusV2, ",", "\t")})
	dir := t.TempDir()
	writeFile(t, dir, "alice.settings.json", `{"name":"Alice"}`)

	src := NewManagementSource(NewManagementClient(ManagementConfig{Address: f.addr(), Timeout: 2 * time.Second}), dir)

	stats, err := src.Statistics(context.Background())
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}
	if len(stats.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(stats.Sessions))
	}
	if stats.Sessions[0].Label != "alice" {
		t.Errorf("expected alice first, got %q", stats.Sessions[0].Label)
	}
}

func TestSplitAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, network, address string
	}{
		{"127.0.0.1:7505", "tcp", "127.0.0.1:7505"},
		{"tcp://127.0.0.1:7505", "tcp", "127.0.0.1:7505"},
		{"unix:///run/openvpn/mgmt.sock", "unix", "/run/openvpn/mgmt.sock"},
		{"/run/openvpn/mgmt.sock", "unix", "/run/openvpn/mgmt.sock"},
	}
	for _, tt := range tests {
		network, address := splitAddress(tt.in)
		if network != tt.network || address != tt.address {
			t.Errorf("splitAddress(%q) = %s %s, expected %s %s", tt.in, network, address, tt.network, tt.address)
		}
	}
}
