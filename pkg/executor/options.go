package executor

import "time"

// Options holds configuration for one submission.
type Options struct {
	Priority int
	Tags     []string
}

// Option modifies submission Options.
type Option interface {
	Apply(*Options)
}

type optionFunc func(*Options)

func (f optionFunc) Apply(o *Options) { f(o) }

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{}
}

// Priority sets the submission priority (higher runs first).
func Priority(p int) Option {
	return optionFunc(func(o *Options) { o.Priority = p })
}

// Tags restricts which workers may serve the submission: only workers
// whose accepted tags intersect these will claim it.
func Tags(tags ...string) Option {
	return optionFunc(func(o *Options) { o.Tags = tags })
}

// ExecutorOption configures an Executor.
type ExecutorOption interface {
	ApplyExecutor(*ExecutorConfig)
}

type executorOptionFunc func(*ExecutorConfig)

func (f executorOptionFunc) ApplyExecutor(c *ExecutorConfig) { f(c) }

// ExecutorConfig holds executor configuration.
type ExecutorConfig struct {
	// PollInterval is how often futures re-read their job row.
	PollInterval time.Duration
}

// PollEvery sets the result polling interval for futures.
func PollEvery(d time.Duration) ExecutorOption {
	return executorOptionFunc(func(c *ExecutorConfig) { c.PollInterval = d })
}
