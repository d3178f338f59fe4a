package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jacksund/simmate-engine/pkg/core"
)

// Future is a handle on one submitted job. It holds no authoritative state:
// every observation is a fresh read of the JobRecord row, so a Future built
// from just an ID in another process behaves identically to the original.
type Future struct {
	id       string
	storage  core.Storage
	interval time.Duration
}

// ID returns the job ID backing this future.
func (f *Future) ID() string {
	return f.id
}

// Status reads the job's current status once, without blocking.
func (f *Future) Status(ctx context.Context) (core.JobStatus, error) {
	rec, err := f.storage.GetJob(ctx, f.id)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", core.ErrJobNotFound
	}
	return rec.Status, nil
}

// Outcome is a completed job's result together with its audit trail.
type Outcome struct {
	// Raw is the serialized workup value.
	Raw json.RawMessage

	// Corrections is the ordered trail of fixes applied during execution.
	Corrections []core.Correction
}

// Decode unmarshals the workup value into v.
func (o *Outcome) Decode(v any) error {
	if len(o.Raw) == 0 {
		return nil
	}
	return json.Unmarshal(o.Raw, v)
}

// Result blocks until the job reaches a terminal status, polling the row at
// the configured interval. On completion it returns the Outcome; on error
// it re-raises the stored failure, typed, with the correction trail
// attached, even when execution happened on a different machine.
func (f *Future) Result(ctx context.Context) (*Outcome, error) {
	var rec *core.JobRecord
	for {
		var err error
		rec, err = f.storage.GetJob(ctx, f.id)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, core.ErrJobNotFound
		}
		if rec.Status.Terminal() {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.interval):
		}
	}

	switch rec.Status {
	case core.StatusCompleted:
		corrections, err := f.storage.GetCorrections(ctx, f.id)
		if err != nil {
			return nil, err
		}
		return &Outcome{Raw: rec.Result, Corrections: corrections}, nil
	case core.StatusCancelled:
		return nil, core.ErrCancelled
	default:
		return nil, core.DecodeFailure(rec.Error)
	}
}

// Wait blocks on all futures and returns outcomes in input order,
// regardless of completion order. The first failure cancels the remaining
// waits and is returned.
func Wait(ctx context.Context, futures ...*Future) ([]*Outcome, error) {
	outcomes := make([]*Outcome, len(futures))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range futures {
		i, f := i, f
		g.Go(func() error {
			out, err := f.Result(ctx)
			if err != nil {
				return fmt.Errorf("job %s: %w", f.ID(), err)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
