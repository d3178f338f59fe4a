package worker

import (
	"time"
)

// WorkerOption configures a Worker.
type WorkerOption interface {
	ApplyWorker(*WorkerConfig)
}

type workerOptionFunc func(*WorkerConfig)

func (f workerOptionFunc) ApplyWorker(c *WorkerConfig) { f(c) }

// WorkerConfig holds worker configuration.
type WorkerConfig struct {
	// WorkerID identifies this worker on claimed rows. Defaults to a UUID.
	WorkerID string

	// Tags are the routing tags this worker accepts. Empty accepts all.
	Tags []string

	// PollInterval is the sleep between empty-queue polls.
	PollInterval time.Duration

	// ClaimBatch is how many pending candidates to fetch per poll.
	ClaimBatch int

	// MaxJobs stops the worker after this many jobs. Zero means unlimited.
	MaxJobs int

	// StopWhenEmpty exits the loop the first time no work is available.
	StopWhenEmpty bool

	// EnableScheduler runs the recurring-submission scheduler goroutine.
	EnableScheduler bool

	// StorageRetry configures backoff for transient storage failures.
	StorageRetry *RetryConfig
}

// WithID sets an explicit worker ID instead of a generated UUID.
func WithID(id string) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) { c.WorkerID = id })
}

// AcceptTags restricts the worker to jobs whose tags intersect these.
func AcceptTags(tags ...string) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) { c.Tags = tags })
}

// PollEvery sets the empty-queue polling interval.
func PollEvery(d time.Duration) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) { c.PollInterval = d })
}

// SingleFlow makes the worker process exactly one job and then exit, for
// clean resource sharing on HPC clusters.
func SingleFlow() WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) { c.MaxJobs = 1 })
}

// MaxJobs bounds how many jobs the worker processes before exiting.
func MaxJobs(n int) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) { c.MaxJobs = n })
}

// StopWhenEmpty makes the worker exit once the queue has no work for it.
func StopWhenEmpty() WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) { c.StopWhenEmpty = true })
}

// WithScheduler enables the recurring-submission scheduler in the worker.
func WithScheduler(enabled bool) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) { c.EnableScheduler = enabled })
}

// ClaimBatch sets how many pending candidates are fetched per poll.
func ClaimBatch(n int) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) { c.ClaimBatch = n })
}
