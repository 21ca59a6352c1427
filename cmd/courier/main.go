// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

// Package main is the entry point for the Courier delivery daemon.
//
// Components are initialized in this order:
//
//  1. Configuration: defaults, optional config.yaml, environment (Koanf v2)
//  2. Logging: zerolog global logger
//  3. Store handle: BadgerDB, opened lazily by the executor
//  4. Sender: http, nats, kafka or log, selected by SENDER_TYPE
//  5. Pipeline: executor, wake scheduler and job wiring
//  6. Supervisor tree: executor, scheduler, compactor and startup recovery in
//     the pipeline layer; the HTTP API in the API layer
//
// SIGINT and SIGTERM cancel the tree. The running job is interrupted, queued
// jobs report Interrupted, and records left Posting are repaired by the next
// startup recovery.
//
// # Example Usage
//
//	export STORE_PATH=/var/lib/courier
//	export SENDER_TYPE=http
//	export COLLECTOR_URL=https://collector.example.com/v1/batches
//	./courier
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/tomtom215/courier/internal/api"
	"github.com/tomtom215/courier/internal/config"
	"github.com/tomtom215/courier/internal/logging"
	"github.com/tomtom215/courier/internal/pipeline"
	"github.com/tomtom215/courier/internal/scheduler"
	"github.com/tomtom215/courier/internal/sender"
	"github.com/tomtom215/courier/internal/store"
	"github.com/tomtom215/courier/internal/supervisor"
	"github.com/tomtom215/courier/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.LoggingOptions())

	if err := run(cfg); err != nil {
		logging.Error().Err(err).Msg("Courier exited with error")
		os.Exit(1)
	}
	logging.Info().Msg("Courier stopped gracefully")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("store_path", cfg.Store.Path).
		Str("sender", cfg.Sender.Type).
		Bool("api_enabled", cfg.Server.Enabled).
		Msg("Starting Courier")

	handle := store.NewHandle(cfg.StoreOptions())
	defer func() {
		if err := handle.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event store")
		}
	}()

	snd, err := sender.New(ctx, cfg.SenderOptions())
	if err != nil {
		return fmt.Errorf("create sender: %w", err)
	}

	sched := scheduler.New(cfg.SchedulerOptions())
	p := pipeline.New(handle, sched, snd)
	defer func() {
		if err := p.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing sender")
		}
	}()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	// Pipeline layer. Recovery runs on the executor queue ahead of any
	// scheduler-driven Send, which is skipped until recovery succeeds.
	tree.AddPipelineService(p.Executor())
	tree.AddPipelineService(services.NewRecoveryService(p))
	tree.AddPipelineService(p.Scheduler())
	tree.AddPipelineService(services.NewCompactorService(store.NewCompactor(handle)))

	// API layer
	if cfg.Server.Enabled {
		server := &http.Server{
			Handler: api.NewRouter(p, api.Config{
				IngestRateLimit:  cfg.Server.IngestRateLimit,
				IngestRateWindow: cfg.Server.IngestRateWindow,
				MaxBodyBytes:     cfg.Server.MaxBodyBytes,
				CORSOrigins:      cfg.Server.CORSOrigins,
			}),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		}
		addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
		tree.AddAPIService(services.NewHTTPServerService(server, addr, cfg.Server.ShutdownTimeout))
	}

	logging.Info().
		Strs("pipeline", tree.Services(supervisor.LayerPipeline)).
		Strs("api", tree.Services(supervisor.LayerAPI)).
		Msg("Supervisor services registered")

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
		treeErr = <-errCh
	case treeErr = <-errCh:
	}
	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		logging.Error().Err(treeErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	return nil
}
