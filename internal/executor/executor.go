// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/tomtom215/courier/internal/job"
	"github.com/tomtom215/courier/internal/logging"
	"github.com/tomtom215/courier/internal/metrics"
)

// ErrAlreadyServing is returned when Serve is called while another Serve runs.
var ErrAlreadyServing = errors.New("executor already serving")

// Callback receives the result of a submitted job on the worker goroutine.
type Callback func(kind job.Kind, result job.Result)

// Resources are the collaborators of one activation.
type Resources struct {
	Env job.Env

	// Close releases whatever the factory acquired. May be nil.
	Close func() error
}

// ResourceFactory builds Resources at the start of an activation.
type ResourceFactory func(ctx context.Context) (*Resources, error)

type pending struct {
	job      job.Job
	callback Callback
	queued   time.Time
}

// Executor is the single-worker job runner.
type Executor struct {
	factory ResourceFactory

	mu      sync.Mutex
	queue   []pending
	serving bool
	current job.Kind
	wake    chan struct{}
}

// New creates an executor that builds its collaborators with factory.
func New(factory ResourceFactory) *Executor {
	return &Executor{
		factory: factory,
		wake:    make(chan struct{}, 1),
	}
}

// Submit queues j. callback may be nil. Invalid jobs are rejected before
// they are queued.
func (e *Executor) Submit(j job.Job, callback Callback) error {
	if err := j.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	e.queue = append(e.queue, pending{job: j, callback: callback, queued: time.Now()})
	depth := len(e.queue)
	e.mu.Unlock()

	metrics.UpdateQueueDepth(depth)
	select {
	case e.wake <- struct{}{}:
	default:
	}
	return nil
}

// SubmitAndWait queues j and blocks until it has run. If ctx ends first the
// job stays queued and Interrupted is returned with ctx's error.
func (e *Executor) SubmitAndWait(ctx context.Context, j job.Job) (job.Result, error) {
	done := make(chan job.Result, 1)
	if err := e.Submit(j, func(_ job.Kind, r job.Result) { done <- r }); err != nil {
		return 0, err
	}
	select {
	case r := <-done:
		return r, nil
	case <-ctx.Done():
		return job.Interrupted, ctx.Err()
	}
}

// Len returns the number of queued jobs, not counting the running one.
func (e *Executor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Running returns the kind of the job in progress, or zero when idle.
func (e *Executor) Running() job.Kind {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

func (e *Executor) next() (pending, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return pending{}, false
	}
	p := e.queue[0]
	e.queue[0] = pending{}
	e.queue = e.queue[1:]
	metrics.UpdateQueueDepth(len(e.queue))
	return p, true
}

// Serve runs queued jobs until ctx is cancelled.
func (e *Executor) Serve(ctx context.Context) error {
	e.mu.Lock()
	if e.serving {
		e.mu.Unlock()
		return ErrAlreadyServing
	}
	e.serving = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.serving = false
		e.mu.Unlock()
	}()

	logging.Info().Int("queued", e.Len()).Msg("Job executor started")

	var res *Resources
	defer e.release(&res)

	for {
		p, ok := e.next()
		if !ok {
			e.release(&res)
			select {
			case <-ctx.Done():
				e.drain()
				logging.Info().Msg("Job executor stopped")
				return ctx.Err()
			case <-e.wake:
				continue
			}
		}

		if ctx.Err() != nil {
			report(p, job.Interrupted)
			e.drain()
			logging.Info().Msg("Job executor stopped")
			return ctx.Err()
		}
		e.runOne(ctx, p, &res)
	}
}

// runOne runs p, building resources first if this is a new activation.
func (e *Executor) runOne(ctx context.Context, p pending, res **Resources) {
	jobCtx := logging.ContextWithNewCorrelationID(ctx)
	jobCtx = logging.ContextWithJobKind(jobCtx, p.job.Kind.String())

	if *res == nil {
		r, err := e.factory(jobCtx)
		if err != nil {
			result := job.StorageError
			if ctx.Err() != nil {
				result = job.Interrupted
			}
			logging.Ctx(jobCtx).Error().Err(err).Msg("Could not build job resources")
			report(p, result)
			return
		}
		*res = r
		metrics.RecordActivation(true)
	}

	e.mu.Lock()
	e.current = p.job.Kind
	e.mu.Unlock()

	result := e.run(jobCtx, p.job, (*res).Env)

	e.mu.Lock()
	e.current = 0
	e.mu.Unlock()

	logging.Ctx(jobCtx).Debug().
		Str("result", result.String()).
		Dur("waited", time.Since(p.queued)).
		Msg("Job completed")
	report(p, result)
}

// run executes j, converting a panic into StorageError so callers waiting on
// the callback are always answered.
func (e *Executor) run(ctx context.Context, j job.Job, env job.Env) (result job.Result) {
	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(ctx).Error().
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("Job panicked")
			result = job.StorageError
		}
	}()
	return j.Run(ctx, env)
}

func (e *Executor) release(res **Resources) {
	if *res == nil {
		return
	}
	if (*res).Close != nil {
		if err := (*res).Close(); err != nil {
			logging.Warn().Err(err).Msg("Releasing job resources failed")
		}
	}
	*res = nil
	metrics.RecordActivation(false)
}

// drain reports Interrupted for every queued job.
func (e *Executor) drain() {
	e.mu.Lock()
	queued := e.queue
	e.queue = nil
	e.mu.Unlock()
	metrics.UpdateQueueDepth(0)

	if len(queued) > 0 {
		logging.Info().Int("jobs", len(queued)).Msg("Interrupting queued jobs")
	}
	for _, p := range queued {
		report(p, job.Interrupted)
	}
}

func report(p pending, r job.Result) {
	if p.callback != nil {
		p.callback(p.job.Kind, r)
	}
}

// String implements fmt.Stringer for suture logging.
func (e *Executor) String() string {
	return "job-executor"
}
