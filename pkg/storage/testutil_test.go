package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jacksund/simmate-engine/pkg/core"
)

// newTestStorage opens a migrated storage for one test. SQLite on a
// temporary file by default; PostgreSQL when TEST_DATABASE_URL is set.
func newTestStorage(t *testing.T) *GormStorage {
	t.Helper()

	var db *gorm.DB
	var err error

	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		require.NoError(t, err)
		t.Cleanup(func() {
			db.Exec("DELETE FROM correction_records")
			db.Exec("DELETE FROM job_records")
		})
	} else {
		path := filepath.Join(t.TempDir(), "engine_test.db")
		db, err = gorm.Open(sqlite.Open(path), cfg)
		require.NoError(t, err)
	}

	s := NewGormStorage(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

// newTestJob builds a pending job record with sensible defaults.
func newTestJob(taskName string, priority int, tags ...string) *core.JobRecord {
	rec := &core.JobRecord{
		TaskName: taskName,
		Params:   []byte(`{}`),
		Priority: priority,
	}
	rec.SetTags(tags)
	return rec
}

// submitTestJob persists a job and returns it.
func submitTestJob(t *testing.T, s *GormStorage, taskName string, priority int, tags ...string) *core.JobRecord {
	t.Helper()
	rec := newTestJob(taskName, priority, tags...)
	require.NoError(t, s.Submit(context.Background(), rec))
	return rec
}

// claimTestJob submits and claims a job so terminal transitions can be tested.
func claimTestJob(t *testing.T, s *GormStorage, workerID string) *core.JobRecord {
	t.Helper()
	rec := submitTestJob(t, s, "relax-structure", 0)
	ok, err := s.Claim(context.Background(), rec.ID, workerID)
	require.NoError(t, err)
	require.True(t, ok)
	return rec
}

// backdateClaim rewrites claimed_at so stale-release paths can be exercised.
func backdateClaim(t *testing.T, s *GormStorage, jobID string, age time.Duration) {
	t.Helper()
	past := time.Now().Add(-age)
	err := s.db.Model(&core.JobRecord{}).
		Where("id = ?", jobID).
		Update("claimed_at", past).Error
	require.NoError(t, err)
}
