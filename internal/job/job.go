// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/courier/internal/event"
	"github.com/tomtom215/courier/internal/logging"
	"github.com/tomtom215/courier/internal/metrics"
)

// ErrNilRecord is returned by NewEnqueue for a nil record.
var ErrNilRecord = errors.New("enqueue requires a record")

// ErrUnknownKind is returned by Validate for a Job not built by a constructor.
var ErrUnknownKind = errors.New("unknown job kind")

// Kind identifies one of the four jobs.
type Kind int

const (
	KindEnqueue Kind = iota + 1
	KindRecover
	KindSend
	KindCleanup
)

func (k Kind) String() string {
	switch k {
	case KindEnqueue:
		return "enqueue"
	case KindRecover:
		return "recover"
	case KindSend:
		return "send"
	case KindCleanup:
		return "cleanup"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the outcome reported for a job.
type Result int

const (
	Success Result = iota
	NoWorkToDo
	CouldNotSave
	FailedToSendReceipts
	Interrupted
	// StorageError reports a missing or unreadable row. It ends the job but
	// the next scheduler cycle starts again from the store's contents.
	StorageError
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case NoWorkToDo:
		return "no_work_to_do"
	case CouldNotSave:
		return "could_not_save"
	case FailedToSendReceipts:
		return "failed_to_send_receipts"
	case Interrupted:
		return "interrupted"
	case StorageError:
		return "storage_error"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Store is the part of the event table jobs use.
type Store interface {
	Save(ctx context.Context, rec *event.Record) (event.ID, error)
	EventsWithStatus(ctx context.Context, status event.Status) ([]event.ID, error)
	Read(ctx context.Context, id event.ID) (*event.Record, error)
	SetStatusBatch(ctx context.Context, ids []event.ID, status event.Status) (int, error)
	DeleteBatch(ctx context.Context, ids []event.ID) error
}

// Scheduler arms and disarms the periodic wake-up.
type Scheduler interface {
	Enable()
	EnableIfDisabled()
	Disable()
	IsEnabled() bool
}

// Sender delivers one batch synchronously.
type Sender interface {
	Send(ctx context.Context, batch []event.Payload) error
}

// Env carries the collaborators a job runs against.
type Env struct {
	Store     Store
	Scheduler Scheduler
	Sender    Sender
}

// Job is a unit of pipeline work. Record is set only for KindEnqueue.
type Job struct {
	Kind   Kind
	Record *event.Record
}

// NewEnqueue builds an Enqueue job. It fails before any state change when rec
// is nil or invalid.
func NewEnqueue(rec *event.Record) (Job, error) {
	if rec == nil {
		return Job{}, ErrNilRecord
	}
	if err := rec.Validate(); err != nil {
		return Job{}, err
	}
	return Job{Kind: KindEnqueue, Record: rec}, nil
}

// NewRecover builds a Recover job.
func NewRecover() Job { return Job{Kind: KindRecover} }

// NewSend builds a Send job.
func NewSend() Job { return Job{Kind: KindSend} }

// NewCleanup builds a Cleanup job.
func NewCleanup() Job { return Job{Kind: KindCleanup} }

// Validate reports whether j is one of the four constructed kinds.
func (j Job) Validate() error {
	switch j.Kind {
	case KindEnqueue:
		if j.Record == nil {
			return ErrNilRecord
		}
		return nil
	case KindRecover, KindSend, KindCleanup:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownKind, int(j.Kind))
	}
}

// Run executes the job against env and reports its result.
func (j Job) Run(ctx context.Context, env Env) Result {
	start := time.Now()
	ctx = logging.ContextWithJobKind(ctx, j.Kind.String())

	var res Result
	switch j.Kind {
	case KindEnqueue:
		res = runEnqueue(ctx, env, j.Record)
	case KindRecover:
		res = runRecover(ctx, env)
	case KindSend:
		res = runSend(ctx, env)
	case KindCleanup:
		res = runCleanup(ctx, env)
	default:
		panic(fmt.Sprintf("job: unhandled kind %d", int(j.Kind)))
	}

	metrics.RecordJob(j.Kind.String(), res.String(), time.Since(start))
	logging.Ctx(ctx).Debug().
		Str("result", res.String()).
		Dur("duration", time.Since(start)).
		Msg("Job finished")
	return res
}

// failure maps a store error to Interrupted when ctx was cancelled and to
// StorageError otherwise.
func failure(ctx context.Context, err error, msg string) Result {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logging.Ctx(ctx).Info().Err(err).Msg(msg + ": interrupted")
		return Interrupted
	}
	logging.Ctx(ctx).Error().Err(err).Msg(msg)
	return StorageError
}

// hasPendingWork reports whether any record is NotPosted or PostingError.
func hasPendingWork(ctx context.Context, s Store) (bool, error) {
	for _, status := range event.Statuses {
		if !status.Pending() {
			continue
		}
		ids, err := s.EventsWithStatus(ctx, status)
		if err != nil {
			return false, err
		}
		if len(ids) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// syncScheduler arms the scheduler when work is pending and disarms it
// otherwise. A read failure leaves it armed so the next cycle can retry.
func syncScheduler(ctx context.Context, env Env) {
	pending, err := hasPendingWork(ctx, env.Store)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Could not count pending work, keeping scheduler armed")
		env.Scheduler.EnableIfDisabled()
		return
	}
	if pending {
		env.Scheduler.EnableIfDisabled()
		return
	}
	env.Scheduler.Disable()
}
