package core

import "time"

// Event is the interface for all worker events. Events are process-local:
// cross-process observation goes through the JobRecord table.
type Event interface {
	eventMarker()
}

// JobClaimed is emitted when a worker wins the claim for a job.
type JobClaimed struct {
	Job       *JobRecord
	Timestamp time.Time
}

func (*JobClaimed) eventMarker() {}

// JobCompleted is emitted when a job completes successfully.
type JobCompleted struct {
	Job       *JobRecord
	Duration  time.Duration
	Timestamp time.Time
}

func (*JobCompleted) eventMarker() {}

// JobErrored is emitted when a job fails.
type JobErrored struct {
	Job       *JobRecord
	Error     error
	Timestamp time.Time
}

func (*JobErrored) eventMarker() {}

// CorrectionApplied is emitted when a handler rewrites a work directory.
type CorrectionApplied struct {
	JobID      string
	Correction Correction
	Timestamp  time.Time
}

func (*CorrectionApplied) eventMarker() {}
