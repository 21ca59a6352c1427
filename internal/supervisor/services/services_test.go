// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package services

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/courier/internal/job"
)

var (
	_ suture.Service = (*CompactorService)(nil)
	_ suture.Service = (*HTTPServerService)(nil)
	_ suture.Service = (*RecoveryService)(nil)
)

type mockStartStopper struct {
	startErr  error
	running   atomic.Bool
	starts    atomic.Int32
	stops     atomic.Int32
	startedCh chan struct{}
}

func newMockStartStopper() *mockStartStopper {
	return &mockStartStopper{startedCh: make(chan struct{}, 1)}
}

func (m *mockStartStopper) Start(context.Context) error {
	m.starts.Add(1)
	if m.startErr != nil {
		return m.startErr
	}
	m.running.Store(true)
	select {
	case m.startedCh <- struct{}{}:
	default:
	}
	return nil
}

func (m *mockStartStopper) Stop() {
	m.stops.Add(1)
	m.running.Store(false)
}

func (m *mockStartStopper) IsRunning() bool { return m.running.Load() }

func TestCompactorService(t *testing.T) {
	t.Run("starts and stops with context", func(t *testing.T) {
		c := newMockStartStopper()
		svc := NewCompactorService(c)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		select {
		case <-c.startedCh:
		case <-time.After(time.Second):
			t.Fatal("compactor not started")
		}
		cancel()

		if err := <-errCh; !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
		if c.IsRunning() || c.stops.Load() != 1 {
			t.Error("compactor not stopped")
		}
	})

	t.Run("returns start failure", func(t *testing.T) {
		c := newMockStartStopper()
		c.startErr = errors.New("already running")
		svc := NewCompactorService(c)

		err := svc.Serve(context.Background())
		if !errors.Is(err, c.startErr) {
			t.Errorf("Serve() = %v, want start error", err)
		}
		if c.stops.Load() != 0 {
			t.Error("Stop called after failed Start")
		}
	})

	if got := NewCompactorService(newMockStartStopper()).String(); got != "store-compactor" {
		t.Errorf("String() = %q", got)
	}
}

type mockHTTPServer struct {
	serveErr    error
	shutdownErr error
	listening   chan net.Addr
	stopCh      chan struct{}
	shutdowns   atomic.Int32
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{
		listening: make(chan net.Addr, 1),
		stopCh:    make(chan struct{}),
	}
}

func (m *mockHTTPServer) Serve(l net.Listener) error {
	defer l.Close()
	select {
	case m.listening <- l.Addr():
	default:
	}
	if m.serveErr != nil {
		return m.serveErr
	}
	<-m.stopCh
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	m.shutdowns.Add(1)
	close(m.stopCh)
	return m.shutdownErr
}

func TestNewHTTPServerService_DefaultTimeout(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		if svc := NewHTTPServerService(newMockHTTPServer(), "127.0.0.1:0", d); svc.shutdownTimeout != 10*time.Second {
			t.Errorf("timeout %v became %v, want 10s", d, svc.shutdownTimeout)
		}
	}
}

func TestHTTPServerService_Serve(t *testing.T) {
	t.Run("shuts down gracefully on cancellation", func(t *testing.T) {
		server := newMockHTTPServer()
		svc := NewHTTPServerService(server, "127.0.0.1:0", time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		addr := <-server.listening
		if got := svc.Addr(); got != addr.String() {
			t.Errorf("Addr() = %q, want %q", got, addr)
		}
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return")
		}
		if server.shutdowns.Load() != 1 {
			t.Errorf("Shutdown called %d times", server.shutdowns.Load())
		}
		if svc.Addr() != "" {
			t.Errorf("Addr() after stop = %q", svc.Addr())
		}
	})

	t.Run("returns bind failure", func(t *testing.T) {
		taken, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		defer taken.Close()

		server := newMockHTTPServer()
		svc := NewHTTPServerService(server, taken.Addr().String(), time.Second)
		if err := svc.Serve(context.Background()); err == nil {
			t.Fatal("Serve() on a taken port returned nil")
		}
		select {
		case <-server.listening:
			t.Error("server was started without a listener")
		default:
		}
	})

	t.Run("returns serve failure", func(t *testing.T) {
		server := newMockHTTPServer()
		server.serveErr = errors.New("accept: too many open files")
		svc := NewHTTPServerService(server, "127.0.0.1:0", time.Second)

		if err := svc.Serve(context.Background()); !errors.Is(err, server.serveErr) {
			t.Errorf("Serve() = %v, want serve error", err)
		}
	})

	t.Run("returns shutdown failure", func(t *testing.T) {
		server := newMockHTTPServer()
		server.shutdownErr = errors.New("shutdown timeout")
		svc := NewHTTPServerService(server, "127.0.0.1:0", time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		<-server.listening
		cancel()

		if err := <-errCh; !errors.Is(err, server.shutdownErr) {
			t.Errorf("Serve() = %v, want shutdown error", err)
		}
	})

	t.Run("serves a real http.Server", func(t *testing.T) {
		srv := &http.Server{
			ReadHeaderTimeout: time.Second,
			Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}),
		}
		svc := NewHTTPServerService(srv, "127.0.0.1:0", time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		deadline := time.Now().Add(2 * time.Second)
		for svc.Addr() == "" && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		addr := svc.Addr()
		if addr == "" {
			t.Fatal("service never bound")
		}

		resp, err := http.Get("http://" + addr)
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("status = %d", resp.StatusCode)
		}

		cancel()
		if err := <-errCh; !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v", err)
		}
	})
}

type fakeRecoverer struct {
	results []job.Result
	calls   atomic.Int32
}

func (f *fakeRecoverer) RunRecovery(context.Context) job.Result {
	n := int(f.calls.Add(1)) - 1
	if n < len(f.results) {
		return f.results[n]
	}
	return job.Success
}

func TestRecoveryService_Serve(t *testing.T) {
	t.Run("success asks not to be restarted", func(t *testing.T) {
		svc := NewRecoveryService(&fakeRecoverer{})
		if err := svc.Serve(context.Background()); !errors.Is(err, suture.ErrDoNotRestart) {
			t.Errorf("Serve() = %v, want ErrDoNotRestart", err)
		}
	})

	t.Run("failure is returned", func(t *testing.T) {
		svc := NewRecoveryService(&fakeRecoverer{results: []job.Result{job.StorageError}})
		err := svc.Serve(context.Background())
		if err == nil || errors.Is(err, suture.ErrDoNotRestart) {
			t.Errorf("Serve() = %v, want failure", err)
		}
	})

	t.Run("cancellation returns context error", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		svc := NewRecoveryService(&fakeRecoverer{results: []job.Result{job.Interrupted}})
		if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	})
}

func TestRecoveryService_RetriedUntilSuccess(t *testing.T) {
	r := &fakeRecoverer{results: []job.Result{job.StorageError, job.StorageError}}

	sup := suture.New("test", suture.Spec{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          time.Second,
	})
	sup.Add(NewRecoveryService(r))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)
	time.Sleep(300 * time.Millisecond)
	cancel()
	<-errCh

	if got := r.calls.Load(); got != 3 {
		t.Errorf("RunRecovery called %d times, want 3", got)
	}
}
