package core

import (
	"sort"
	"strings"
	"time"
)

// JobStatus represents the current state of a job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusErrored   JobStatus = "errored"
	StatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status is final. Terminal rows are never
// claimed or mutated again.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusErrored, StatusCancelled:
		return true
	}
	return false
}

// JobRecord is a persisted queue entry representing one unit of work.
// The row is the single source of truth: submission and result retrieval
// may happen from different processes referencing the same ID.
type JobRecord struct {
	ID        string    `gorm:"primaryKey;size:36"`
	TaskName  string    `gorm:"index;size:255;not null"`
	Params    []byte    `gorm:"type:bytes"`
	Priority  int       `gorm:"index;default:0"`
	Status    JobStatus `gorm:"index;size:20;default:'pending'"`
	Tags      string    `gorm:"index;size:255"` // normalized, space-delimited
	Result    []byte    `gorm:"type:bytes"`     // serialized workup value
	Error     []byte    `gorm:"type:bytes"`     // serialized Failure
	WorkerID  string    `gorm:"size:255"`
	ClaimedAt *time.Time
	DoneAt    *time.Time
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// SetTags stores a tag set on the record in normalized form
// (deduplicated, sorted, space-delimited).
func (r *JobRecord) SetTags(tags []string) {
	r.Tags = NormalizeTags(tags)
}

// TagList returns the record's tags as a slice.
func (r *JobRecord) TagList() []string {
	if r.Tags == "" {
		return nil
	}
	return strings.Fields(r.Tags)
}

// NormalizeTags deduplicates, sorts, and joins a tag set.
func NormalizeTags(tags []string) string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return strings.Join(out, " ")
}

// TagsIntersect reports whether a job's tag set should be served by a worker
// accepting the given tags. A worker with no accepted tags serves everything;
// an untagged job is served by any worker.
func TagsIntersect(jobTags, accepted []string) bool {
	if len(accepted) == 0 || len(jobTags) == 0 {
		return true
	}
	set := make(map[string]bool, len(accepted))
	for _, t := range accepted {
		set[t] = true
	}
	for _, t := range jobTags {
		if set[t] {
			return true
		}
	}
	return false
}

// CorrectionRecord is a persisted audit row for one applied fix. Rows are
// written by the worker that executed the job so that a handle in another
// process can retrieve the full correction trail.
type CorrectionRecord struct {
	ID        string    `gorm:"primaryKey;size:36"`
	JobID     string    `gorm:"index;size:36;not null"`
	Seq       int       `gorm:"not null"`
	Handler   string    `gorm:"size:255;not null"`
	Reason    string    `gorm:"type:text"`
	Fix       string    `gorm:"type:text"`
	AppliedAt time.Time
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
