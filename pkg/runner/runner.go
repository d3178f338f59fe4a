package runner

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jacksund/simmate-engine/pkg/core"
	"github.com/jacksund/simmate-engine/pkg/handler"
)

// Defaults applied by Run when the corresponding field is zero.
const (
	DefaultPollInterval   = time.Second
	DefaultGracePeriod    = 5 * time.Second
	DefaultMaxCorrections = 5

	// StdoutFile and StderrFile are created inside the work directory so
	// monitor handlers can inspect partial output of the running program.
	StdoutFile = "stdout.log"
	StderrFile = "stderr.log"
)

// Runner supervises one external command in one work directory.
//
// The directory is exclusively owned by the task execution for its whole
// lifetime, including across restarts; the runner never wipes it, only
// handler Correct calls touch files.
type Runner struct {
	// Argv is the resolved command line: program followed by arguments.
	Argv []string

	// Dir is the work directory the command runs in.
	Dir string

	Monitors  []handler.Handler
	Terminals []handler.Handler

	// PollInterval is how often monitor handlers are evaluated.
	PollInterval time.Duration

	// MaxCorrections bounds how many times each handler may correct during
	// one task execution. Exceeding it is fatal, not retried further.
	MaxCorrections int

	// GracePeriod is how long a signalled process gets before a forced kill.
	GracePeriod time.Duration

	// OnCorrection, when set, observes each applied correction.
	OnCorrection func(core.Correction)

	Logger *slog.Logger
}

// Run executes the command under supervision, appending every applied
// correction to log. The log is threaded in by the caller so that the
// per-handler budget spans the whole task execution, including full task
// re-runs; unrelated tasks never share correction state.
//
// A fired terminal handler returns *core.RetryTaskError after correcting.
// A monitor flagging a terminating condition stops the process without
// correction and returns nil.
func (r *Runner) Run(ctx context.Context, log *core.CorrectionLog) error {
	interval := r.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	budget := r.MaxCorrections
	if budget <= 0 {
		budget = DefaultMaxCorrections
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for {
		cmd, done, closeLogs, err := r.start()
		if err != nil {
			return err
		}

		fired, desc, exitErr, supErr := r.supervise(ctx, cmd, done, interval)
		closeLogs()
		if supErr != nil {
			return supErr
		}

		if fired != nil {
			if desc.Terminating {
				// Intentional shutdown requested by the handler: no
				// correction, no terminal pass, straight to workup.
				logger.Info("terminating condition detected", "handler", fired.Name())
				return nil
			}
			if err := r.correct(fired, desc, budget, log, logger); err != nil {
				return err
			}
			continue // restart the same command in the same directory
		}

		// Process exited on its own: terminal handlers run once, under the
		// same first-match rule, regardless of exit code.
		term, termDesc, err := handler.FirstMatch(r.Dir, r.Terminals)
		if err != nil {
			return err
		}
		if term != nil {
			if termDesc.Terminating {
				logger.Info("terminating condition detected", "handler", term.Name())
				return nil
			}
			if err := r.correct(term, termDesc, budget, log, logger); err != nil {
				return err
			}
			// Terminal failures often require rewritten inputs, so the whole
			// staged task re-runs, not just the binary.
			entries := log.Entries()
			return &core.RetryTaskError{Correction: entries[len(entries)-1]}
		}

		if exitErr != nil {
			var ee *exec.ExitError
			if errors.As(exitErr, &ee) {
				return &core.CommandExitError{Command: r.Argv[0], ExitCode: ee.ExitCode()}
			}
			return exitErr
		}
		return nil
	}
}

// start launches the command with stdout/stderr captured into the work
// directory. Failure to start at all is a fatal setup-time error.
func (r *Runner) start() (*exec.Cmd, chan error, func(), error) {
	if len(r.Argv) == 0 {
		return nil, nil, nil, &core.StartError{Command: "", Err: errors.New("empty command")}
	}

	stdout, err := os.Create(filepath.Join(r.Dir, StdoutFile))
	if err != nil {
		return nil, nil, nil, &core.StartError{Command: r.Argv[0], Err: err}
	}
	stderr, err := os.Create(filepath.Join(r.Dir, StderrFile))
	if err != nil {
		stdout.Close()
		return nil, nil, nil, &core.StartError{Command: r.Argv[0], Err: err}
	}
	closeLogs := func() {
		stdout.Close()
		stderr.Close()
	}

	cmd := exec.Command(r.Argv[0], r.Argv[1:]...)
	cmd.Dir = r.Dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		closeLogs()
		return nil, nil, nil, &core.StartError{Command: r.Argv[0], Err: err}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	return cmd, done, closeLogs, nil
}

// supervise polls monitor handlers until one fires or the process exits.
func (r *Runner) supervise(ctx context.Context, cmd *exec.Cmd, done chan error, interval time.Duration) (handler.Handler, *core.ErrorDescriptor, error, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.terminate(cmd, done)
			return nil, nil, nil, ctx.Err()

		case exitErr := <-done:
			return nil, nil, exitErr, nil

		case <-ticker.C:
			h, desc, err := handler.FirstMatch(r.Dir, r.Monitors)
			if err != nil {
				// Handler bugs propagate immediately; don't leave the child
				// running behind them.
				r.terminate(cmd, done)
				return nil, nil, nil, err
			}
			if h != nil {
				r.terminate(cmd, done)
				return h, desc, nil, nil
			}
		}
	}
}

// terminate signals the process and falls back to a forced kill after the
// grace period. Waits for the exit to be reaped before returning so the
// work directory is quiescent.
func (r *Runner) terminate(cmd *exec.Cmd, done chan error) {
	if cmd.Process == nil {
		return
	}
	grace := r.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	_ = cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-done:
		return
	case <-time.After(grace):
	}

	_ = cmd.Process.Kill()
	<-done
}

// correct enforces the per-handler budget, applies the fix, and records it.
func (r *Runner) correct(h handler.Handler, desc *core.ErrorDescriptor, budget int, log *core.CorrectionLog, logger *slog.Logger) error {
	if log.CountFor(h.Name()) >= budget {
		return &core.CorrectionLimitError{Handler: h.Name(), Limit: budget, Log: log.Entries()}
	}

	fix, err := h.Correct(r.Dir, desc)
	if err != nil {
		return err
	}

	c := core.Correction{Handler: h.Name(), Error: *desc, Fix: fix, At: time.Now()}
	log.Append(c)
	logger.Info("correction applied",
		"handler", h.Name(),
		"reason", desc.Reason,
		"fix", fix,
	)
	if r.OnCorrection != nil {
		r.OnCorrection(c)
	}
	return nil
}
