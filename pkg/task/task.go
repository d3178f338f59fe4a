package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jacksund/simmate-engine/pkg/core"
	"github.com/jacksund/simmate-engine/pkg/handler"
	"github.com/jacksund/simmate-engine/pkg/runner"
)

// Params holds the input parameters for one task submission. Values must be
// JSON-serializable so submissions can cross process boundaries.
type Params map[string]any

// SetupFunc prepares a work directory from params and returns its path.
// Setup must be a pure function of params: re-running it for the same
// submission must yield the same directory.
type SetupFunc func(ctx context.Context, params Params) (string, error)

// WorkupFunc interprets a finished work directory and returns a
// serializable result.
type WorkupFunc func(ctx context.Context, dir string) (any, error)

// StagedTask defines one supervised unit of work: setup -> supervised
// execution -> workup.
type StagedTask struct {
	// Name identifies the task in the workflow catalogue and on JobRecords.
	Name string

	Setup  SetupFunc
	Workup WorkupFunc

	// Command is the command template. Each element may contain {key}
	// placeholders resolved from params at setup time.
	Command []string

	// Monitors and Terminals are evaluated in the order given here.
	Monitors  []handler.Handler
	Terminals []handler.Handler

	// PollInterval is the monitor evaluation interval.
	PollInterval time.Duration

	// MaxCorrections is the per-handler correction budget for one whole
	// task execution, including full re-runs after terminal corrections.
	MaxCorrections int

	// GracePeriod is how long a signalled process gets before a forced kill.
	GracePeriod time.Duration

	Logger *slog.Logger
}

// Result is the output of one task execution together with its audit trail.
type Result struct {
	// Value is whatever workup returned.
	Value any

	// Corrections is the complete ordered trail of applied fixes.
	Corrections []core.Correction

	// Dir is the work directory the execution owned.
	Dir string
}

// Validate checks the task's declarative configuration.
func (t *StagedTask) Validate() error {
	if t.Name == "" {
		return errors.New("task: name is required")
	}
	if t.Setup == nil || t.Workup == nil {
		return fmt.Errorf("task %q: setup and workup are required", t.Name)
	}
	if len(t.Command) == 0 {
		return fmt.Errorf("task %q: command is required", t.Name)
	}
	if err := handler.ValidateMonitors(t.Monitors); err != nil {
		return fmt.Errorf("task %q: %w", t.Name, err)
	}
	if err := handler.ValidateTerminals(t.Terminals); err != nil {
		return fmt.Errorf("task %q: %w", t.Name, err)
	}
	return nil
}

// Run executes the task with a fresh correction log.
func (t *StagedTask) Run(ctx context.Context, params Params) (*Result, error) {
	var log core.CorrectionLog
	return t.RunWithLog(ctx, params, &log, nil)
}

// RunWithLog executes setup, the supervised command, and workup, retrying
// the whole sequence when a terminal handler corrects the work directory.
// The caller owns log, so the audit trail and per-handler budgets survive
// every internal retry while staying isolated from unrelated tasks.
// onCorrection, when non-nil, observes fixes as they are applied.
func (t *StagedTask) RunWithLog(ctx context.Context, params Params, log *core.CorrectionLog, onCorrection func(core.Correction)) (*Result, error) {
	if err := t.Validate(); err != nil {
		return nil, core.FailSetup(err)
	}

	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for {
		dir, err := t.Setup(ctx, params)
		if err != nil {
			var setupErr *core.SetupError
			if errors.As(err, &setupErr) {
				return nil, err
			}
			return nil, core.FailSetup(err)
		}

		argv, err := ResolveCommand(t.Command, params)
		if err != nil {
			return nil, core.FailSetup(err)
		}

		r := &runner.Runner{
			Argv:           argv,
			Dir:            dir,
			Monitors:       t.Monitors,
			Terminals:      t.Terminals,
			PollInterval:   t.PollInterval,
			MaxCorrections: t.MaxCorrections,
			GracePeriod:    t.GracePeriod,
			OnCorrection:   onCorrection,
			Logger:         logger,
		}

		err = r.Run(ctx, log)
		var retry *core.RetryTaskError
		if errors.As(err, &retry) {
			logger.Info("re-running staged task after terminal correction",
				"task", t.Name,
				"handler", retry.Correction.Handler,
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		value, err := t.Workup(ctx, dir)
		if err != nil {
			return nil, &core.WorkupError{Err: err}
		}
		return &Result{Value: value, Corrections: log.Entries(), Dir: dir}, nil
	}
}

// ResolveCommand substitutes {key} placeholders in a command template from
// params. Unresolved placeholders are a setup-time error.
func ResolveCommand(template []string, params Params) ([]string, error) {
	argv := make([]string, len(template))
	for i, arg := range template {
		resolved := arg
		for key, val := range params {
			resolved = strings.ReplaceAll(resolved, "{"+key+"}", fmt.Sprint(val))
		}
		if open := strings.IndexByte(resolved, '{'); open >= 0 && strings.IndexByte(resolved[open:], '}') > 0 {
			return nil, fmt.Errorf("task: unresolved placeholder in %q", resolved)
		}
		argv[i] = resolved
	}
	return argv, nil
}
