package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jacksund/simmate-engine/pkg/core"
	"github.com/jacksund/simmate-engine/pkg/security"
)

// GormStorage implements core.Storage using GORM.
type GormStorage struct {
	db *gorm.DB
}

// NewGormStorage creates a new GORM-backed storage.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return &GormStorage{db: db}
}

// Migrate creates the necessary tables.
func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&core.JobRecord{}, &core.CorrectionRecord{})
}

// Submit persists a new pending job.
func (s *GormStorage) Submit(ctx context.Context, rec *core.JobRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Status == "" {
		rec.Status = core.StatusPending
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

// NextPending lists pending jobs ordered by priority (highest first), then
// submission time. Read-only: callers claim separately so that the only
// cross-worker mutual exclusion is the conditional update in Claim.
func (s *GormStorage) NextPending(ctx context.Context, limit int) ([]*core.JobRecord, error) {
	var recs []*core.JobRecord
	err := s.db.WithContext(ctx).
		Where("status = ?", core.StatusPending).
		Order("priority DESC, created_at ASC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}

// Claim performs the atomic pending->running transition. The status guard
// in the WHERE clause makes this a compare-and-swap: under a race, exactly
// one contender sees RowsAffected == 1.
func (s *GormStorage) Claim(ctx context.Context, jobID, workerID string) (bool, error) {
	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&core.JobRecord{}).
		Where("id = ? AND status = ?", jobID, core.StatusPending).
		Updates(map[string]any{
			"status":     core.StatusRunning,
			"worker_id":  workerID,
			"claimed_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Complete marks a claimed job completed and stores its result. Validates
// that the worker owns the job; terminal rows are never touched again.
func (s *GormStorage) Complete(ctx context.Context, jobID, workerID string, resultBytes []byte) error {
	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&core.JobRecord{}).
		Where("id = ? AND worker_id = ? AND status = ?", jobID, workerID, core.StatusRunning).
		Updates(map[string]any{
			"status":  core.StatusCompleted,
			"result":  resultBytes,
			"done_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrJobNotOwned
	}
	return nil
}

// Fail marks a claimed job errored and stores its serialized failure.
func (s *GormStorage) Fail(ctx context.Context, jobID, workerID string, failure []byte) error {
	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&core.JobRecord{}).
		Where("id = ? AND worker_id = ? AND status = ?", jobID, workerID, core.StatusRunning).
		Updates(map[string]any{
			"status":  core.StatusErrored,
			"error":   failure,
			"done_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrJobNotOwned
	}
	return nil
}

// Cancel transitions a still-pending job to cancelled. The same
// conditional-update shape as Claim, so cancellation and claiming can race
// safely: exactly one wins.
func (s *GormStorage) Cancel(ctx context.Context, jobID string) (bool, error) {
	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&core.JobRecord{}).
		Where("id = ? AND status = ?", jobID, core.StatusPending).
		Updates(map[string]any{
			"status":  core.StatusCancelled,
			"done_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SaveCorrections replaces the persisted audit trail for a job. Replacing
// keeps the write idempotent when a worker retries after a transient
// storage failure.
func (s *GormStorage) SaveCorrections(ctx context.Context, jobID string, corrections []core.Correction) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", jobID).Delete(&core.CorrectionRecord{}).Error; err != nil {
			return err
		}
		for i, c := range corrections {
			row := core.CorrectionRecord{
				ID:        uuid.New().String(),
				JobID:     jobID,
				Seq:       i,
				Handler:   c.Handler,
				Reason:    security.SanitizeStoredText(c.Error.Reason),
				Fix:       security.SanitizeStoredText(c.Fix),
				AppliedAt: c.At,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetCorrections retrieves a job's audit trail in application order.
func (s *GormStorage) GetCorrections(ctx context.Context, jobID string) ([]core.Correction, error) {
	var rows []core.CorrectionRecord
	err := s.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	corrections := make([]core.Correction, len(rows))
	for i, row := range rows {
		corrections[i] = core.Correction{
			Handler: row.Handler,
			Error:   core.ErrorDescriptor{Reason: row.Reason},
			Fix:     row.Fix,
			At:      row.AppliedAt,
		}
	}
	return corrections, nil
}

// GetJob retrieves a job by ID.
func (s *GormStorage) GetJob(ctx context.Context, jobID string) (*core.JobRecord, error) {
	var rec core.JobRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &rec, err
}

// GetJobsByStatus retrieves jobs by status.
func (s *GormStorage) GetJobsByStatus(ctx context.Context, status core.JobStatus, limit int) ([]*core.JobRecord, error) {
	var recs []*core.JobRecord
	err := s.db.WithContext(ctx).
		Where("status = ?", status).
		Limit(limit).
		Find(&recs).Error
	return recs, err
}

// PendingCount returns how many jobs are waiting to be claimed.
func (s *GormStorage) PendingCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&core.JobRecord{}).
		Where("status = ?", core.StatusPending).
		Count(&count).Error
	return count, err
}

// ReleaseStale requeues running jobs claimed longer ago than olderThan.
// There is no heartbeat: a worker crashing mid-job strands its row in
// running, and this is the explicit operator remedy.
func (s *GormStorage) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result := s.db.WithContext(ctx).
		Model(&core.JobRecord{}).
		Where("status = ? AND claimed_at < ?", core.StatusRunning, cutoff).
		Updates(map[string]any{
			"status":     core.StatusPending,
			"worker_id":  "",
			"claimed_at": nil,
		})
	return result.RowsAffected, result.Error
}
