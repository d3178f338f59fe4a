package core

import (
	"fmt"
	"time"
)

// ErrorDescriptor describes one failure pattern found by a handler's Check.
type ErrorDescriptor struct {
	// Reason is a human-readable description of the detected problem.
	Reason string `json:"reason"`

	// Terminating marks an intentional, non-error shutdown request.
	// The runner stops the process without correcting and proceeds
	// straight to workup.
	Terminating bool `json:"terminating,omitempty"`
}

// Correction is one entry in the audit trail: which handler fired, what it
// found, and what it changed.
type Correction struct {
	Handler string          `json:"handler"`
	Error   ErrorDescriptor `json:"error"`
	Fix     string          `json:"fix"`
	At      time.Time       `json:"at"`
}

func (c Correction) String() string {
	return fmt.Sprintf("%s: %s -> %s", c.Handler, c.Error.Reason, c.Fix)
}

// CorrectionLog is the ordered audit trail of detected errors and applied
// fixes for one task execution. It survives internal restarts of the
// execution and is part of the result contract, not optional logging.
type CorrectionLog struct {
	entries []Correction
}

// Append records a correction at the end of the log.
func (l *CorrectionLog) Append(c Correction) {
	l.entries = append(l.entries, c)
}

// Entries returns the recorded corrections in order.
func (l *CorrectionLog) Entries() []Correction {
	return l.entries
}

// Len returns the number of recorded corrections.
func (l *CorrectionLog) Len() int {
	return len(l.entries)
}

// CountFor returns how many corrections the named handler has applied.
func (l *CorrectionLog) CountFor(handler string) int {
	n := 0
	for _, c := range l.entries {
		if c.Handler == handler {
			n++
		}
	}
	return n
}
