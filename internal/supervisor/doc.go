// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

/*
Package supervisor provides process supervision for Courier using suture v4.

Services are organized into two layers:

	RootSupervisor ("courier")
	├── PipelineSupervisor ("pipeline-layer")
	│   ├── job-executor
	│   ├── wake-scheduler
	│   ├── store-compactor
	│   └── startup-recovery (runs once)
	└── APISupervisor ("api-layer")
	    └── http-server

A crash in the HTTP layer does not restart the executor, and a restarted
executor keeps its queue. Supervisor events are logged through sutureslog
with the zerolog-backed slog handler from internal/logging.

Usage in main.go:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{})
	tree.AddPipelineService(p.Executor())
	tree.AddPipelineService(p.Scheduler())
	tree.AddAPIService(services.NewHTTPServerService(srv, "127.0.0.1:8089", 10*time.Second))
	errCh := tree.ServeBackground(ctx)
*/
package supervisor
