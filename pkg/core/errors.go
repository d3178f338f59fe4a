package core

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Validation and queue errors
var (
	ErrInvalidTaskName = errors.New("engine: invalid task name (must be alphanumeric, start with letter)")
	ErrTaskNameTooLong = errors.New("engine: task name too long")
	ErrInvalidTag      = errors.New("engine: invalid tag")
	ErrParamsTooLarge  = errors.New("engine: task params exceed size limit")
	ErrJobNotFound     = errors.New("engine: job not found")
	ErrJobNotOwned     = errors.New("engine: job not owned by this worker")
	ErrUnknownTask     = errors.New("engine: no task registered under that name")
	ErrNotCancellable  = errors.New("engine: job is no longer pending")
	ErrCancelled       = errors.New("engine: job was cancelled")
)

// SetupError is a fatal configuration-time failure: bad params, a missing
// external program, a setup function that could not produce a work
// directory. It is never retried by handlers.
type SetupError struct {
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup: %v", e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// FailSetup wraps an error as a fatal setup failure.
func FailSetup(err error) error {
	return &SetupError{Err: err}
}

// CorrectionLimitError reports an exhausted per-handler correction budget.
// The full audit trail travels with the error.
type CorrectionLimitError struct {
	Handler string
	Limit   int
	Log     []Correction
}

func (e *CorrectionLimitError) Error() string {
	return fmt.Sprintf("correction limit: handler %q exceeded %d corrections", e.Handler, e.Limit)
}

// CommandExitError reports a process that exited non-zero without any
// terminal handler recognizing the failure.
type CommandExitError struct {
	Command  string
	ExitCode int
}

func (e *CommandExitError) Error() string {
	return fmt.Sprintf("command %q exited with code %d and no handler matched", e.Command, e.ExitCode)
}

// StartError reports a process that could not be started at all (missing
// binary, bad permissions). Distinct from a correctable runtime error.
type StartError struct {
	Command string
	Err     error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start %q: %v", e.Command, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// WorkupError reports a workup function that could not interpret a
// finished work directory.
type WorkupError struct {
	Err error
}

func (e *WorkupError) Error() string {
	return fmt.Sprintf("workup: %v", e.Err)
}

func (e *WorkupError) Unwrap() error {
	return e.Err
}

// RetryTaskError signals that a terminal handler corrected the work
// directory and the whole staged task (setup, execute, workup) must run
// again. It never escapes StagedTask.Run.
type RetryTaskError struct {
	Correction Correction
}

func (e *RetryTaskError) Error() string {
	return fmt.Sprintf("task retry requested by handler %q", e.Correction.Handler)
}

// RemoteError is a failure reconstructed from a job row, carrying the
// original message and correction trail across process boundaries.
type RemoteError struct {
	Kind    string
	Message string
	Log     []Correction
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Failure kinds used in the serialized error payload.
const (
	FailureSetup           = "setup"
	FailureStart           = "start"
	FailureCorrectionLimit = "correction_limit"
	FailureCommand         = "command"
	FailureHandler         = "handler"
	FailureWorkup          = "workup"
	FailureInternal        = "internal"
)

// Failure is the serialized form of a job error stored on the JobRecord.
// It carries enough to re-raise a typed error plus the audit trail in a
// process that never saw the original failure.
type Failure struct {
	Kind    string       `json:"kind"`
	Message string       `json:"message"`
	Handler string       `json:"handler,omitempty"`
	Limit   int          `json:"limit,omitempty"`
	Log     []Correction `json:"log,omitempty"`
}

// EncodeFailure classifies err and serializes it with the correction trail.
func EncodeFailure(err error, log []Correction) []byte {
	f := Failure{
		Kind:    FailureInternal,
		Message: err.Error(),
		Log:     log,
	}

	var setupErr *SetupError
	var startErr *StartError
	var limitErr *CorrectionLimitError
	var exitErr *CommandExitError
	var workupErr *WorkupError

	switch {
	case errors.As(err, &setupErr):
		f.Kind = FailureSetup
	case errors.As(err, &startErr):
		f.Kind = FailureStart
	case errors.As(err, &limitErr):
		f.Kind = FailureCorrectionLimit
		f.Handler = limitErr.Handler
		f.Limit = limitErr.Limit
	case errors.As(err, &exitErr):
		f.Kind = FailureCommand
	case errors.As(err, &workupErr):
		f.Kind = FailureWorkup
	}

	b, marshalErr := json.Marshal(f)
	if marshalErr != nil {
		// Message content is the only thing that can fail to encode.
		b, _ = json.Marshal(Failure{Kind: f.Kind, Message: "unencodable failure"})
	}
	return b
}

// DecodeFailure reconstructs a typed error from a serialized Failure.
func DecodeFailure(b []byte) error {
	var f Failure
	if err := json.Unmarshal(b, &f); err != nil {
		return &RemoteError{Kind: FailureInternal, Message: string(b)}
	}

	switch f.Kind {
	case FailureSetup:
		return &SetupError{Err: &RemoteError{Kind: f.Kind, Message: f.Message, Log: f.Log}}
	case FailureCorrectionLimit:
		return &CorrectionLimitError{Handler: f.Handler, Limit: f.Limit, Log: f.Log}
	default:
		return &RemoteError{Kind: f.Kind, Message: f.Message, Log: f.Log}
	}
}
