package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jacksund/simmate-engine/pkg/core"
	"github.com/jacksund/simmate-engine/pkg/security"
	"github.com/jacksund/simmate-engine/pkg/task"
)

// DefaultPollInterval is how often futures re-read their job row when no
// interval is configured.
const DefaultPollInterval = 500 * time.Millisecond

// Executor submits tasks to the shared queue and hands out Futures backed
// by JobRecord rows.
type Executor struct {
	storage  core.Storage
	registry *Registry
	config   ExecutorConfig
}

// New creates an Executor over the given storage and task registry.
func New(storage core.Storage, registry *Registry, opts ...ExecutorOption) *Executor {
	config := ExecutorConfig{PollInterval: DefaultPollInterval}
	for _, opt := range opts {
		opt.ApplyExecutor(&config)
	}
	return &Executor{storage: storage, registry: registry, config: config}
}

// Registry returns the executor's task registry.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Storage returns the underlying storage.
func (e *Executor) Storage() core.Storage {
	return e.storage
}

// Submit creates a pending JobRecord for the named task and returns a
// Future identified by the record's ID.
func (e *Executor) Submit(ctx context.Context, taskName string, params task.Params, opts ...Option) (*Future, error) {
	if _, ok := e.registry.Get(taskName); !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownTask, taskName)
	}

	options := NewOptions()
	for _, opt := range opts {
		opt.Apply(options)
	}
	if err := security.ValidateTags(options.Tags); err != nil {
		return nil, err
	}

	paramBytes, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to marshal params: %w", err)
	}
	if len(paramBytes) > security.MaxParamsSize {
		return nil, core.ErrParamsTooLarge
	}

	rec := &core.JobRecord{
		ID:       uuid.New().String(),
		TaskName: taskName,
		Params:   paramBytes,
		Priority: options.Priority,
		Status:   core.StatusPending,
	}
	rec.SetTags(options.Tags)

	if err := e.storage.Submit(ctx, rec); err != nil {
		return nil, fmt.Errorf("engine: failed to submit: %w", err)
	}

	return e.Handle(rec.ID), nil
}

// Handle re-attaches a Future to an existing job ID, for callers retrieving
// results from a different process than the one that submitted.
func (e *Executor) Handle(jobID string) *Future {
	return &Future{
		id:       jobID,
		storage:  e.storage,
		interval: e.config.PollInterval,
	}
}

// Cancel transitions a still-pending job to cancelled. Cancelling a job
// that already started (or finished) returns ErrNotCancellable; in-flight
// work is only interruptible cooperatively, through the worker's context.
func (e *Executor) Cancel(ctx context.Context, jobID string) error {
	ok, err := e.storage.Cancel(ctx, jobID)
	if err != nil {
		return err
	}
	if !ok {
		rec, getErr := e.storage.GetJob(ctx, jobID)
		if getErr != nil {
			return getErr
		}
		if rec == nil {
			return core.ErrJobNotFound
		}
		return core.ErrNotCancellable
	}
	return nil
}
