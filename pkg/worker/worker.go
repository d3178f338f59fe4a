package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jacksund/simmate-engine/pkg/core"
	"github.com/jacksund/simmate-engine/pkg/executor"
	"github.com/jacksund/simmate-engine/pkg/schedule"
	"github.com/jacksund/simmate-engine/pkg/task"
)

// DefaultPollInterval is the empty-queue sleep when none is configured.
const DefaultPollInterval = time.Second

// defaultClaimBatch is how many pending candidates are fetched per poll
// when none is configured. A batch bigger than one lets a worker fall
// through to the next candidate after losing a claim race.
const defaultClaimBatch = 10

// ScheduledSubmission holds configuration for a recurring submission.
type ScheduledSubmission struct {
	TaskName string
	Params   task.Params
	Schedule schedule.Schedule
	Options  []executor.Option
}

// Worker claims and executes jobs from the shared queue. Each worker is
// single-threaded at the job level: it blocks for the full runtime of the
// supervised execution it is serving.
type Worker struct {
	storage  core.Storage
	registry *executor.Registry
	exec     *executor.Executor
	config   WorkerConfig
	logger   *slog.Logger

	mu        sync.RWMutex
	scheduled map[string]*ScheduledSubmission

	// Hooks and process-local events
	onClaim    []func(context.Context, *core.JobRecord)
	onComplete []func(context.Context, *core.JobRecord)
	onFail     []func(context.Context, *core.JobRecord, error)
	eventSubs  []chan core.Event
}

// New creates a worker over the given storage and task registry.
func New(storage core.Storage, registry *executor.Registry, opts ...WorkerOption) *Worker {
	config := WorkerConfig{
		WorkerID:     uuid.New().String(),
		PollInterval: DefaultPollInterval,
		ClaimBatch:   defaultClaimBatch,
	}
	for _, opt := range opts {
		opt.ApplyWorker(&config)
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.ClaimBatch <= 0 {
		config.ClaimBatch = defaultClaimBatch
	}
	if config.StorageRetry == nil {
		defaultCfg := DefaultRetryConfig()
		config.StorageRetry = &defaultCfg
	}

	return &Worker{
		storage:   storage,
		registry:  registry,
		exec:      executor.New(storage, registry),
		config:    config,
		logger:    slog.Default(),
		scheduled: make(map[string]*ScheduledSubmission),
	}
}

// ID returns the worker's identity as written onto claimed rows.
func (w *Worker) ID() string {
	return w.config.WorkerID
}

// Start runs the claim loop. It returns nil when a lifecycle policy
// (single-flow, max-jobs, stop-when-empty) ends the loop, and ctx.Err()
// when cancelled.
func (w *Worker) Start(ctx context.Context) error {
	if w.config.EnableScheduler {
		go w.runScheduler(ctx)
	}

	w.logger.Info("worker started",
		"worker_id", w.config.WorkerID,
		"tags", w.config.Tags,
	)

	done := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		job, err := w.claimNext(ctx)
		if err != nil {
			w.logger.Error("failed to claim after retries", "error", err)
			if sleepErr := w.sleep(ctx); sleepErr != nil {
				return sleepErr
			}
			continue
		}

		if job == nil {
			if w.config.StopWhenEmpty {
				w.logger.Info("queue empty, stopping", "worker_id", w.config.WorkerID, "jobs_done", done)
				return nil
			}
			if err := w.sleep(ctx); err != nil {
				return err
			}
			continue
		}

		w.process(ctx, job)
		done++

		if w.config.MaxJobs > 0 && done >= w.config.MaxJobs {
			w.logger.Info("job budget reached, stopping", "worker_id", w.config.WorkerID, "jobs_done", done)
			return nil
		}
	}
}

func (w *Worker) sleep(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(w.config.PollInterval):
		return nil
	}
}

// claimNext fetches pending candidates in priority order and attempts the
// conditional claim on each acceptable one. Losing a race to another
// worker just advances to the next candidate; preference for the highest
// priority row is best-effort across the fleet, not globally atomic.
func (w *Worker) claimNext(ctx context.Context) (*core.JobRecord, error) {
	var candidates []*core.JobRecord
	err := retryWithBackoff(ctx, *w.config.StorageRetry, func() error {
		var listErr error
		candidates, listErr = w.storage.NextPending(ctx, w.config.ClaimBatch)
		return listErr
	})
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		if !core.TagsIntersect(c.TagList(), w.config.Tags) {
			continue
		}
		won, err := w.storage.Claim(ctx, c.ID, w.config.WorkerID)
		if err != nil {
			return nil, err
		}
		if won {
			now := time.Now()
			c.Status = core.StatusRunning
			c.WorkerID = w.config.WorkerID
			c.ClaimedAt = &now
			return c, nil
		}
	}
	return nil, nil
}

// process executes one claimed job and writes the terminal status back.
func (w *Worker) process(ctx context.Context, job *core.JobRecord) {
	start := time.Now()
	w.logger.Info("job claimed", "job_id", job.ID, "task", job.TaskName)
	w.callClaimHooks(ctx, job)
	w.Emit(&core.JobClaimed{Job: job, Timestamp: start})

	var log core.CorrectionLog
	result, err := w.execute(ctx, job, &log)

	if err != nil {
		w.writeFailure(ctx, job, err, log.Entries())
		w.callFailHooks(ctx, job, err)
		w.Emit(&core.JobErrored{Job: job, Error: err, Timestamp: time.Now()})
		w.logger.Error("job errored", "job_id", job.ID, "task", job.TaskName, "error", err)
		return
	}

	if err := w.writeSuccess(ctx, job, result, log.Entries()); err != nil {
		w.logger.Error("failed to complete job after retries", "job_id", job.ID, "error", err)
		return
	}
	w.callCompleteHooks(ctx, job)
	w.Emit(&core.JobCompleted{Job: job, Duration: time.Since(start), Timestamp: time.Now()})
	w.logger.Info("job completed",
		"job_id", job.ID,
		"task", job.TaskName,
		"duration", time.Since(start),
		"corrections", log.Len(),
	)
}

// execute resolves the task and runs it, reporting corrections as events.
func (w *Worker) execute(ctx context.Context, job *core.JobRecord, log *core.CorrectionLog) (*task.Result, error) {
	t, ok := w.registry.Get(job.TaskName)
	if !ok {
		return nil, core.FailSetup(fmt.Errorf("%w: %q", core.ErrUnknownTask, job.TaskName))
	}

	var params task.Params
	if len(job.Params) > 0 {
		if err := json.Unmarshal(job.Params, &params); err != nil {
			return nil, core.FailSetup(fmt.Errorf("unmarshal params: %w", err))
		}
	}

	return t.RunWithLog(ctx, params, log, func(c core.Correction) {
		w.Emit(&core.CorrectionApplied{JobID: job.ID, Correction: c, Timestamp: c.At})
	})
}

func (w *Worker) writeSuccess(ctx context.Context, job *core.JobRecord, result *task.Result, corrections []core.Correction) error {
	valueBytes, err := json.Marshal(result.Value)
	if err != nil {
		w.writeFailure(ctx, job, &core.WorkupError{Err: fmt.Errorf("unserializable result: %w", err)}, corrections)
		return nil
	}

	if err := w.saveCorrections(ctx, job.ID, corrections); err != nil {
		return err
	}
	return retryWithBackoff(ctx, *w.config.StorageRetry, func() error {
		return w.storage.Complete(ctx, job.ID, w.config.WorkerID, valueBytes)
	})
}

// writeFailure serializes the error with its audit trail onto the row, so
// a handle in any process re-raises the original failure.
func (w *Worker) writeFailure(ctx context.Context, job *core.JobRecord, jobErr error, corrections []core.Correction) {
	if err := w.saveCorrections(ctx, job.ID, corrections); err != nil {
		w.logger.Error("failed to save corrections after retries", "job_id", job.ID, "error", err)
	}

	failure := core.EncodeFailure(jobErr, corrections)
	err := retryWithBackoff(ctx, *w.config.StorageRetry, func() error {
		return w.storage.Fail(ctx, job.ID, w.config.WorkerID, failure)
	})
	if err != nil {
		w.logger.Error("failed to mark job errored after retries", "job_id", job.ID, "error", err)
	}
}

func (w *Worker) saveCorrections(ctx context.Context, jobID string, corrections []core.Correction) error {
	if len(corrections) == 0 {
		return nil
	}
	return retryWithBackoff(ctx, *w.config.StorageRetry, func() error {
		return w.storage.SaveCorrections(ctx, jobID, corrections)
	})
}

// --- Recurring submissions ---

// Schedule registers a recurring submission served by this worker's
// scheduler goroutine. Requires WithScheduler(true).
func (w *Worker) Schedule(name string, sched schedule.Schedule, params task.Params, opts ...executor.Option) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scheduled[name] = &ScheduledSubmission{
		TaskName: name,
		Params:   params,
		Schedule: sched,
		Options:  opts,
	}
}

func (w *Worker) runScheduler(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	lastRun := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.RLock()
			scheduled := make(map[string]*ScheduledSubmission, len(w.scheduled))
			for name, sub := range w.scheduled {
				scheduled[name] = sub
			}
			w.mu.RUnlock()

			now := time.Now()
			for name, sub := range scheduled {
				next := sub.Schedule.Next(lastRun[name])
				if now.Before(next) {
					continue
				}
				_, err := w.exec.Submit(ctx, sub.TaskName, sub.Params, sub.Options...)
				if err != nil {
					w.logger.Error("failed to submit scheduled task", "task", name, "error", err)
				} else {
					lastRun[name] = now
				}
			}
		}
	}
}

// --- Hooks and events ---

// OnJobClaimed registers a callback for when this worker claims a job.
func (w *Worker) OnJobClaimed(fn func(context.Context, *core.JobRecord)) {
	w.mu.Lock()
	w.onClaim = append(w.onClaim, fn)
	w.mu.Unlock()
}

// OnJobComplete registers a callback for when a job completes successfully.
func (w *Worker) OnJobComplete(fn func(context.Context, *core.JobRecord)) {
	w.mu.Lock()
	w.onComplete = append(w.onComplete, fn)
	w.mu.Unlock()
}

// OnJobFail registers a callback for when a job fails.
func (w *Worker) OnJobFail(fn func(context.Context, *core.JobRecord, error)) {
	w.mu.Lock()
	w.onFail = append(w.onFail, fn)
	w.mu.Unlock()
}

// Events returns a channel for receiving worker events. The caller must
// call Unsubscribe when done to prevent resource leaks.
func (w *Worker) Events() <-chan core.Event {
	ch := make(chan core.Event, 100)
	w.mu.Lock()
	w.eventSubs = append(w.eventSubs, ch)
	w.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel created by Events().
func (w *Worker) Unsubscribe(ch <-chan core.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, sub := range w.eventSubs {
		if sub == ch {
			w.eventSubs = append(w.eventSubs[:i], w.eventSubs[i+1:]...)
			return
		}
	}
}

// Emit sends an event to all subscribers, dropping on slow consumers.
func (w *Worker) Emit(e core.Event) {
	w.mu.RLock()
	subs := make([]chan core.Event, len(w.eventSubs))
	copy(subs, w.eventSubs)
	w.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (w *Worker) callClaimHooks(ctx context.Context, job *core.JobRecord) {
	w.mu.RLock()
	hooks := make([]func(context.Context, *core.JobRecord), len(w.onClaim))
	copy(hooks, w.onClaim)
	w.mu.RUnlock()
	for _, fn := range hooks {
		fn(ctx, job)
	}
}

func (w *Worker) callCompleteHooks(ctx context.Context, job *core.JobRecord) {
	w.mu.RLock()
	hooks := make([]func(context.Context, *core.JobRecord), len(w.onComplete))
	copy(hooks, w.onComplete)
	w.mu.RUnlock()
	for _, fn := range hooks {
		fn(ctx, job)
	}
}

func (w *Worker) callFailHooks(ctx context.Context, job *core.JobRecord, err error) {
	w.mu.RLock()
	hooks := make([]func(context.Context, *core.JobRecord, error), len(w.onFail))
	copy(hooks, w.onFail)
	w.mu.RUnlock()
	for _, fn := range hooks {
		fn(ctx, job, err)
	}
}

// StartN runs n workers concurrently over the same storage and registry,
// each with its own identity. It blocks until all workers exit and returns
// the first error.
func StartN(ctx context.Context, storage core.Storage, registry *executor.Registry, n int, opts ...WorkerOption) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		w := New(storage, registry, opts...)
		g.Go(func() error {
			return w.Start(ctx)
		})
	}
	return g.Wait()
}
