package daemon

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/octopoid/octopoid/internal/scheduler"
)

func startTestDaemon(t *testing.T) (*Daemon, string) {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "octopoidd.sock")
	pool := scheduler.NewPool(t.TempDir(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	d := New(pool, socketPath, cancel, nil)

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	deadline := time.After(time.Second)
	for {
		if _, err := Call(socketPath, "status", nil, 50*time.Millisecond); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("daemon never became reachable")
		case <-time.After(5 * time.Millisecond):
		}
	}

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("daemon did not shut down after context cancel")
		}
	})
	return d, socketPath
}

func TestDaemonStatusReportsPoolMode(t *testing.T) {
	_, socketPath := startTestDaemon(t)

	raw, err := Call(socketPath, "status", nil, time.Second)
	if err != nil {
		t.Fatalf("Call(status): %v", err)
	}
	var status Status
	if err := json.Unmarshal(raw, &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.Mode != "active" {
		t.Errorf("Mode = %q, want %q", status.Mode, "active")
	}
	if len(status.Instances) != 0 {
		t.Errorf("expected no running instances, got %d", len(status.Instances))
	}
}

func TestDaemonPoolDrainPauseResume(t *testing.T) {
	d, socketPath := startTestDaemon(t)

	if _, err := Call(socketPath, "pool.drain", nil, time.Second); err != nil {
		t.Fatalf("Call(pool.drain): %v", err)
	}
	if d.Pool.Mode() != scheduler.PoolDraining {
		t.Errorf("Mode = %v, want draining", d.Pool.Mode())
	}

	if _, err := Call(socketPath, "pool.pause", nil, time.Second); err != nil {
		t.Fatalf("Call(pool.pause): %v", err)
	}
	if d.Pool.Mode() != scheduler.PoolPaused {
		t.Errorf("Mode = %v, want paused", d.Pool.Mode())
	}

	if _, err := Call(socketPath, "pool.resume", nil, time.Second); err != nil {
		t.Fatalf("Call(pool.resume): %v", err)
	}
	if d.Pool.Mode() != scheduler.PoolActive {
		t.Errorf("Mode = %v, want active", d.Pool.Mode())
	}
}

func TestDaemonRefusesSecondInstance(t *testing.T) {
	_, socketPath := startTestDaemon(t)

	pool := scheduler.NewPool(t.TempDir(), nil, nil)
	second := New(pool, socketPath, nil, nil)
	if err := second.Run(context.Background()); err == nil {
		t.Fatal("expected error starting a second daemon on the same socket")
	}
}

func TestDaemonUnknownMethod(t *testing.T) {
	_, socketPath := startTestDaemon(t)

	if _, err := Call(socketPath, "bogus.method", nil, time.Second); err == nil {
		t.Fatal("expected error for unknown RPC method")
	}
}

func TestDaemonShutdownRPC(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "octopoidd.sock")
	pool := scheduler.NewPool(t.TempDir(), nil, nil)
	d := New(pool, socketPath, nil, nil)

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	deadline := time.After(time.Second)
	for {
		if _, err := Call(socketPath, "status", nil, 50*time.Millisecond); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("daemon never became reachable")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if _, err := Call(socketPath, "shutdown", nil, time.Second); err != nil {
		t.Fatalf("Call(shutdown): %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error after shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not exit after shutdown RPC")
	}
}
