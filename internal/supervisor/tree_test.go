// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSupervisorTreeConstruction(t *testing.T) {
	t.Run("creates hierarchical supervisor tree", func(t *testing.T) {
		tree, err := NewSupervisorTree(testLogger(), TreeConfig{
			FailureThreshold: 5,
			FailureBackoff:   time.Second,
			ShutdownTimeout:  10 * time.Second,
		})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if tree.Root() == nil {
			t.Error("root supervisor should not be nil")
		}
	})

	t.Run("applies default values for zero config", func(t *testing.T) {
		tree, err := NewSupervisorTree(testLogger(), TreeConfig{})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if tree.config != DefaultTreeConfig() {
			t.Errorf("config = %+v, want defaults %+v", tree.config, DefaultTreeConfig())
		}
	})
}

func TestSupervisorTreeLifecycle(t *testing.T) {
	t.Run("tree starts and stops gracefully", func(t *testing.T) {
		tree, _ := NewSupervisorTree(testLogger(), TreeConfig{
			FailureBackoff:  100 * time.Millisecond,
			ShutdownTimeout: time.Second,
		})

		tree.AddPipelineService(NewMockService("mock-pipeline"))
		tree.AddAPIService(NewMockService("mock-api"))

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- tree.Serve(ctx) }()

		time.Sleep(100 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("tree did not shut down in time")
		}
	})

	t.Run("ServeBackground returns channel", func(t *testing.T) {
		tree, _ := NewSupervisorTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		select {
		case err := <-tree.ServeBackground(ctx):
			if err != nil && !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(time.Second):
			t.Error("did not receive from error channel")
		}
	})
}

func TestSupervisorTreeServiceManagement(t *testing.T) {
	tree, _ := NewSupervisorTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})

	pipelineSvc := NewMockService("pipeline-service")
	apiSvc := NewMockService("api-service")
	tree.AddPipelineService(pipelineSvc)
	tree.AddAPIService(apiSvc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-errCh

	if pipelineSvc.StartCount() < 1 {
		t.Error("pipeline service was not started")
	}
	if apiSvc.StartCount() < 1 {
		t.Error("api service was not started")
	}
	if pipelineSvc.StopCount() != pipelineSvc.StartCount() {
		t.Error("pipeline service did not stop")
	}

	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport: %v", err)
	}
	if len(report) != 0 {
		t.Errorf("unstopped services: %v", report)
	}
}

func TestSupervisorTreeFailureHandling(t *testing.T) {
	tree, _ := NewSupervisorTree(testLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	flaky := NewMockService("flaky")
	flaky.SetFailCount(2)
	steady := NewMockService("steady")
	tree.AddPipelineService(flaky)
	tree.AddAPIService(steady)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)
	time.Sleep(300 * time.Millisecond)
	cancel()
	<-errCh

	if got := flaky.StartCount(); got < 3 {
		t.Errorf("flaky service started %d times, want at least 3", got)
	}
	if got := steady.StartCount(); got != 1 {
		t.Errorf("api layer restarted %d times by a pipeline failure", got)
	}
}

func TestDefaultTreeConfig(t *testing.T) {
	cfg := DefaultTreeConfig()
	if cfg.FailureThreshold != 5.0 || cfg.FailureDecay != 30.0 {
		t.Errorf("unexpected failure settings: %+v", cfg)
	}
	if cfg.FailureBackoff != 15*time.Second || cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("unexpected timings: %+v", cfg)
	}
}

func TestSupervisorTreeRejectsNegativeConfig(t *testing.T) {
	tests := []TreeConfig{
		{FailureThreshold: -1},
		{FailureDecay: -1},
		{FailureBackoff: -time.Second},
		{ShutdownTimeout: -time.Second},
	}
	for _, cfg := range tests {
		if _, err := NewSupervisorTree(testLogger(), cfg); !errors.Is(err, ErrInvalidTreeConfig) {
			t.Errorf("NewSupervisorTree(%+v) error = %v, want ErrInvalidTreeConfig", cfg, err)
		}
	}
}

func TestSupervisorTreeServices(t *testing.T) {
	tree, err := NewSupervisorTree(testLogger(), TreeConfig{})
	if err != nil {
		t.Fatal(err)
	}
	tree.AddPipelineService(NewMockService("executor"))
	tree.Add(LayerPipeline, NewMockService("scheduler"))
	tree.AddAPIService(NewMockService("http-server"))

	if got := tree.Services(LayerPipeline); len(got) != 2 || got[0] != "executor" || got[1] != "scheduler" {
		t.Errorf("pipeline services = %v", got)
	}
	if got := tree.Services(LayerAPI); len(got) != 1 || got[0] != "http-server" {
		t.Errorf("api services = %v", got)
	}
}

func TestLayerString(t *testing.T) {
	if LayerPipeline.String() != "pipeline-layer" || LayerAPI.String() != "api-layer" {
		t.Errorf("layer names = %s, %s", LayerPipeline, LayerAPI)
	}
	if got := Layer(7).String(); got != "layer(7)" {
		t.Errorf("unknown layer = %q", got)
	}

	tree, _ := NewSupervisorTree(testLogger(), TreeConfig{})
	defer func() {
		if recover() == nil {
			t.Error("Add with an unknown layer did not panic")
		}
	}()
	tree.Add(Layer(7), NewMockService("x"))
}
