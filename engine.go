// Package engine provides a supervised execution engine for long-running
// external computations, backed by a storage-based distributed task queue.
//
// This is the main package users should import. It re-exports all public
// types from the pkg/ packages for a clean API surface.
//
// Basic usage:
//
//	// Create storage and a task registry
//	db, _ := gorm.Open(sqlite.Open("engine.db"), &gorm.Config{})
//	store := engine.NewGormStorage(db)
//	store.Migrate(context.Background())
//
//	registry := engine.NewRegistry()
//	registry.MustRegister(&engine.StagedTask{
//	    Name:    "relax-structure",
//	    Setup:   writeInputs,
//	    Workup:  parseOutputs,
//	    Command: []string{"vasp_std"},
//	    Monitors:  []engine.Handler{&FrozenJob{}},
//	    Terminals: []engine.Handler{&Unconverged{}},
//	})
//
//	// Submit work and retrieve results, possibly from different machines
//	exec := engine.NewExecutor(store, registry)
//	future, _ := exec.Submit(ctx, "relax-structure", engine.Params{"structure": "NaCl"})
//
//	// Serve work
//	worker := engine.NewWorker(store, registry)
//	worker.Start(ctx)
//
//	result, err := future.Result(ctx)
package engine

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/jacksund/simmate-engine/pkg/core"
	"github.com/jacksund/simmate-engine/pkg/executor"
	"github.com/jacksund/simmate-engine/pkg/handler"
	"github.com/jacksund/simmate-engine/pkg/runner"
	"github.com/jacksund/simmate-engine/pkg/schedule"
	"github.com/jacksund/simmate-engine/pkg/security"
	"github.com/jacksund/simmate-engine/pkg/storage"
	"github.com/jacksund/simmate-engine/pkg/task"
	"github.com/jacksund/simmate-engine/pkg/worker"
)

// Type aliases re-exporting the pkg/ API surface.
type (
	// JobRecord is a persisted queue entry representing one unit of work.
	JobRecord = core.JobRecord

	// JobStatus represents the current state of a job.
	JobStatus = core.JobStatus

	// Storage defines the persistence layer for the queue.
	Storage = core.Storage

	// ErrorDescriptor describes one failure pattern found by a handler.
	ErrorDescriptor = core.ErrorDescriptor

	// Correction is one entry in a task execution's audit trail.
	Correction = core.Correction

	// CorrectionLog is the ordered audit trail for one task execution.
	CorrectionLog = core.CorrectionLog

	// Handler detects and fixes one failure pattern in a work directory.
	Handler = handler.Handler

	// Runner supervises one external command in one work directory.
	Runner = runner.Runner

	// StagedTask binds setup, supervised execution, and workup together.
	StagedTask = task.StagedTask

	// Params holds the input parameters for one submission.
	Params = task.Params

	// Result is a task execution's output with its audit trail.
	Result = task.Result

	// Registry maps task names to StagedTask configurations.
	Registry = executor.Registry

	// Executor submits tasks and hands out Futures.
	Executor = executor.Executor

	// Future is a handle on one submitted job, backed only by its row.
	Future = executor.Future

	// Outcome is a completed job's result with its audit trail.
	Outcome = executor.Outcome

	// Option configures one submission.
	Option = executor.Option

	// Worker claims and executes jobs from the shared queue.
	Worker = worker.Worker

	// WorkerOption configures a Worker.
	WorkerOption = worker.WorkerOption

	// Schedule defines when a recurring submission should next run.
	Schedule = schedule.Schedule

	// GormStorage implements Storage using GORM.
	GormStorage = storage.GormStorage

	// Event is the interface for all worker events.
	Event = core.Event

	// SetupError is a fatal configuration-time failure, never retried.
	SetupError = core.SetupError

	// WorkupError reports a workup that could not interpret its directory.
	WorkupError = core.WorkupError

	// CorrectionLimitError reports an exhausted correction budget.
	CorrectionLimitError = core.CorrectionLimitError

	// CommandExitError reports an unexplained non-zero exit.
	CommandExitError = core.CommandExitError

	// StartError reports a process that could not be started at all.
	StartError = core.StartError
)

// Status constants
const (
	StatusPending   = core.StatusPending
	StatusRunning   = core.StatusRunning
	StatusCompleted = core.StatusCompleted
	StatusErrored   = core.StatusErrored
	StatusCancelled = core.StatusCancelled
)

// Limits
const (
	MaxTaskNameLength = security.MaxTaskNameLength
	MaxParamsSize     = security.MaxParamsSize
	MaxCorrections    = security.MaxCorrections
)

// Error variables
var (
	ErrInvalidTaskName = core.ErrInvalidTaskName
	ErrJobNotFound     = core.ErrJobNotFound
	ErrJobNotOwned     = core.ErrJobNotOwned
	ErrUnknownTask     = core.ErrUnknownTask
	ErrNotCancellable  = core.ErrNotCancellable
	ErrCancelled       = core.ErrCancelled
)

// NewGormStorage creates a new GORM-backed storage.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return storage.NewGormStorage(db)
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return executor.NewRegistry()
}

// NewExecutor creates an Executor over the given storage and registry.
func NewExecutor(s Storage, r *Registry, opts ...executor.ExecutorOption) *Executor {
	return executor.New(s, r, opts...)
}

// NewWorker creates a worker over the given storage and registry.
func NewWorker(s Storage, r *Registry, opts ...WorkerOption) *Worker {
	return worker.New(s, r, opts...)
}

// StartWorkers runs n workers concurrently over the same storage and
// registry, blocking until all exit.
func StartWorkers(ctx context.Context, s Storage, r *Registry, n int, opts ...WorkerOption) error {
	return worker.StartN(ctx, s, r, n, opts...)
}

// Wait blocks on all futures and returns outcomes in input order.
func Wait(ctx context.Context, futures ...*Future) ([]*Outcome, error) {
	return executor.Wait(ctx, futures...)
}

// Submission option functions

// Priority sets the submission priority (higher runs first).
func Priority(p int) Option {
	return executor.Priority(p)
}

// Tags restricts which workers may serve the submission.
func Tags(tags ...string) Option {
	return executor.Tags(tags...)
}

// Worker option functions

// WithID sets an explicit worker ID instead of a generated UUID.
func WithID(id string) WorkerOption {
	return worker.WithID(id)
}

// AcceptTags restricts a worker to jobs whose tags intersect these.
func AcceptTags(tags ...string) WorkerOption {
	return worker.AcceptTags(tags...)
}

// SingleFlow makes a worker process exactly one job and then exit.
func SingleFlow() WorkerOption {
	return worker.SingleFlow()
}

// MaxJobs bounds how many jobs a worker processes before exiting.
func MaxJobs(n int) WorkerOption {
	return worker.MaxJobs(n)
}

// StopWhenEmpty makes a worker exit once the queue has no work for it.
func StopWhenEmpty() WorkerOption {
	return worker.StopWhenEmpty()
}

// PollEvery sets a worker's empty-queue polling interval.
func PollEvery(d time.Duration) WorkerOption {
	return worker.PollEvery(d)
}

// WithScheduler enables the recurring-submission scheduler in a worker.
func WithScheduler(enabled bool) WorkerOption {
	return worker.WithScheduler(enabled)
}

// Schedule functions

// Every creates a schedule that runs at fixed intervals.
func Every(d time.Duration) Schedule {
	return schedule.Every(d)
}

// Daily creates a schedule that runs at a specific time each day.
func Daily(hour, minute int) Schedule {
	return schedule.Daily(hour, minute)
}

// Weekly creates a schedule that runs at a specific day and time each week.
func Weekly(day time.Weekday, hour, minute int) Schedule {
	return schedule.Weekly(day, hour, minute)
}

// Cron creates a schedule from a cron expression.
func Cron(expr string) Schedule {
	return schedule.Cron(expr)
}
