package core

import (
	"context"
	"time"
)

// Storage defines the persistence layer for the job queue. The JobRecord
// table is the queue's on-disk contract: any process with access to it may
// submit or serve work, with no direct connectivity between nodes.
type Storage interface {
	// Migrate creates the necessary database tables.
	Migrate(ctx context.Context) error

	// Submit persists a new pending job.
	Submit(ctx context.Context, rec *JobRecord) error

	// NextPending lists pending jobs ordered by priority (highest first),
	// then submission time. Read-only: claiming is a separate step.
	NextPending(ctx context.Context, limit int) ([]*JobRecord, error)

	// Claim attempts the atomic pending->running transition for one row.
	// It must be a single conditional update that succeeds for exactly one
	// concurrent contender; a read-then-write sequence is a known race.
	Claim(ctx context.Context, jobID, workerID string) (bool, error)

	// Complete marks a claimed job completed and stores its result.
	Complete(ctx context.Context, jobID, workerID string, result []byte) error

	// Fail marks a claimed job errored and stores its serialized failure.
	Fail(ctx context.Context, jobID, workerID string, failure []byte) error

	// Cancel transitions a still-pending job to cancelled. Returns false
	// when the job already left the pending state.
	Cancel(ctx context.Context, jobID string) (bool, error)

	// Correction audit trail
	SaveCorrections(ctx context.Context, jobID string, corrections []Correction) error
	GetCorrections(ctx context.Context, jobID string) ([]Correction, error)

	// Queries
	GetJob(ctx context.Context, jobID string) (*JobRecord, error)
	GetJobsByStatus(ctx context.Context, status JobStatus, limit int) ([]*JobRecord, error)
	PendingCount(ctx context.Context) (int64, error)

	// ReleaseStale requeues running jobs whose workers have gone silent for
	// longer than olderThan. Never called automatically: recovering from
	// worker death is an explicit operator decision.
	ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error)
}
