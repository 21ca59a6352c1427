// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tomtom215/courier/internal/event"
	"github.com/tomtom215/courier/internal/executor"
	"github.com/tomtom215/courier/internal/job"
	"github.com/tomtom215/courier/internal/logging"
	"github.com/tomtom215/courier/internal/scheduler"
	"github.com/tomtom215/courier/internal/sender"
	"github.com/tomtom215/courier/internal/store"
)

// ErrNotRecovered is returned by Flush before RunRecovery has succeeded.
var ErrNotRecovered = errors.New("pipeline: recovery has not run")

// Pipeline is the delivery facade.
type Pipeline struct {
	handle    *store.Handle
	scheduler *scheduler.Scheduler
	sender    sender.Sender
	executor  *executor.Executor

	recovered atomic.Bool
}

// New wires the components and installs the scheduler fire handler. The
// executor and scheduler still need to be served (see Executor and Scheduler).
func New(handle *store.Handle, sched *scheduler.Scheduler, snd sender.Sender) *Pipeline {
	p := &Pipeline{
		handle:    handle,
		scheduler: sched,
		sender:    snd,
	}
	p.executor = executor.New(p.resources)
	sched.SetFireFunc(p.onFire)
	return p
}

// Executor returns the job executor for supervision.
func (p *Pipeline) Executor() *executor.Executor { return p.executor }

// Scheduler returns the wake scheduler for supervision.
func (p *Pipeline) Scheduler() *scheduler.Scheduler { return p.scheduler }

// Recovered reports whether RunRecovery has completed.
func (p *Pipeline) Recovered() bool { return p.recovered.Load() }

func (p *Pipeline) resources(context.Context) (*executor.Resources, error) {
	st, err := p.handle.Acquire()
	if err != nil {
		return nil, fmt.Errorf("acquire store: %w", err)
	}
	return &executor.Resources{
		Env: job.Env{
			Store:     st,
			Scheduler: p.scheduler,
			Sender:    p.sender,
		},
		Close: p.handle.Release,
	}, nil
}

// Enqueue queues rec for persistence. Argument errors are returned before
// anything is queued; the save itself happens asynchronously.
func (p *Pipeline) Enqueue(ctx context.Context, rec *event.Record) error {
	j, err := job.NewEnqueue(rec)
	if err != nil {
		return err
	}
	return p.executor.Submit(j, logResult(ctx))
}

// EnqueueWait queues rec and waits until it has been saved.
func (p *Pipeline) EnqueueWait(ctx context.Context, rec *event.Record) (job.Result, error) {
	j, err := job.NewEnqueue(rec)
	if err != nil {
		return 0, err
	}
	return p.executor.SubmitAndWait(ctx, j)
}

// RunRecovery runs the Recover job and waits for it. Scheduler firings are
// ignored until it has succeeded.
func (p *Pipeline) RunRecovery(ctx context.Context) job.Result {
	start := time.Now()
	r, err := p.executor.SubmitAndWait(ctx, job.NewRecover())
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Recovery did not complete")
		return job.Interrupted
	}
	if r == job.Success {
		p.recovered.Store(true)
	}
	logging.Ctx(ctx).Info().
		Str("result", r.String()).
		Dur("duration", time.Since(start)).
		Msg("Startup recovery finished")
	return r
}

// Flush queues Cleanup and Send and waits for the Send result.
func (p *Pipeline) Flush(ctx context.Context) (job.Result, error) {
	if !p.recovered.Load() {
		return 0, ErrNotRecovered
	}
	if err := p.executor.Submit(job.NewCleanup(), logResult(ctx)); err != nil {
		return 0, err
	}
	r, err := p.executor.SubmitAndWait(ctx, job.NewSend())
	if err != nil {
		return r, err
	}
	p.scheduler.ObserveResult(r)
	return r, nil
}

// onFire is the scheduler fire handler.
func (p *Pipeline) onFire(ctx context.Context) {
	if !p.recovered.Load() {
		logging.Warn().Msg("Wake scheduler fired before recovery, skipping")
		return
	}
	ctx = logging.ContextWithNewCorrelationID(ctx)
	if err := p.executor.Submit(job.NewCleanup(), logResult(ctx)); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to queue cleanup")
		return
	}
	err := p.executor.Submit(job.NewSend(), func(kind job.Kind, r job.Result) {
		logResult(ctx)(kind, r)
		p.scheduler.ObserveResult(r)
	})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to queue send")
	}
}

// Stats is a point-in-time view of the pipeline.
type Stats struct {
	Store            store.Stats   `json:"store"`
	QueueDepth       int           `json:"queue_depth"`
	Running          string        `json:"running,omitempty"`
	SchedulerEnabled bool          `json:"scheduler_enabled"`
	SchedulerPeriod  time.Duration `json:"scheduler_period_ns"`
	Recovered        bool          `json:"recovered"`
	Sender           string        `json:"sender"`
}

// Stats reads store statistics and the executor and scheduler state.
func (p *Pipeline) Stats(ctx context.Context) (Stats, error) {
	st, err := p.handle.Acquire()
	if err != nil {
		return Stats{}, fmt.Errorf("acquire store: %w", err)
	}
	defer func() {
		if err := p.handle.Release(); err != nil {
			logging.Warn().Err(err).Msg("Failed to release store")
		}
	}()

	storeStats, err := st.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}

	s := Stats{
		Store:            storeStats,
		QueueDepth:       p.executor.Len(),
		SchedulerEnabled: p.scheduler.IsEnabled(),
		SchedulerPeriod:  p.scheduler.Period(),
		Recovered:        p.recovered.Load(),
		Sender:           p.sender.Name(),
	}
	if k := p.executor.Running(); k != 0 {
		s.Running = k.String()
	}
	return s, nil
}

// Close releases the sender.
func (p *Pipeline) Close() error {
	return p.sender.Close()
}

func logResult(ctx context.Context) executor.Callback {
	return func(kind job.Kind, r job.Result) {
		evt := logging.Ctx(ctx).Debug()
		switch r {
		case job.Success, job.NoWorkToDo:
		case job.Interrupted:
			evt = logging.Ctx(ctx).Info()
		default:
			evt = logging.Ctx(ctx).Warn()
		}
		evt.Str("job", kind.String()).Str("result", r.String()).Msg("Job finished")
	}
}
