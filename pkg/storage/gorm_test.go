package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacksund/simmate-engine/pkg/core"
	"github.com/jacksund/simmate-engine/pkg/security"
)

// ─────────────────────────────────────────────────────────────────────────────
// Submit
// ─────────────────────────────────────────────────────────────────────────────

func TestSubmit_AppliesDefaults(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	rec := newTestJob("relax-structure", 0, "gpu")
	require.NoError(t, s.Submit(ctx, rec))

	assert.NotEmpty(t, rec.ID, "an ID is assigned on submit")
	assert.Equal(t, core.StatusPending, rec.Status)

	stored, err := s.GetJob(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "relax-structure", stored.TaskName)
	assert.Equal(t, []string{"gpu"}, stored.TagList())
	assert.Empty(t, stored.WorkerID)
	assert.Nil(t, stored.ClaimedAt)
}

func TestSubmit_KeepsCallerAssignedID(t *testing.T) {
	s := newTestStorage(t)

	rec := newTestJob("relax-structure", 0)
	rec.ID = "caller-chose-this"
	require.NoError(t, s.Submit(context.Background(), rec))
	assert.Equal(t, "caller-chose-this", rec.ID)
}

// ─────────────────────────────────────────────────────────────────────────────
// Claim
// ─────────────────────────────────────────────────────────────────────────────

func TestClaim_TransitionsPendingToRunning(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	rec := submitTestJob(t, s, "relax-structure", 0)

	ok, err := s.Claim(ctx, rec.ID, "worker-1")
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := s.GetJob(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusRunning, stored.Status)
	assert.Equal(t, "worker-1", stored.WorkerID)
	require.NotNil(t, stored.ClaimedAt)
}

func TestClaim_ExactlyOneContenderWins(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	rec := submitTestJob(t, s, "relax-structure", 0)

	first, err := s.Claim(ctx, rec.ID, "worker-1")
	require.NoError(t, err)
	second, err := s.Claim(ctx, rec.ID, "worker-2")
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second, "the conditional update admits exactly one claimer")

	stored, err := s.GetJob(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "worker-1", stored.WorkerID, "the loser did not overwrite ownership")
}

func TestClaim_MissingJob(t *testing.T) {
	s := newTestStorage(t)

	ok, err := s.Claim(context.Background(), "no-such-job", "worker-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

// ─────────────────────────────────────────────────────────────────────────────
// Complete / Fail
// ─────────────────────────────────────────────────────────────────────────────

func TestComplete_StoresResult(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	rec := claimTestJob(t, s, "worker-1")

	require.NoError(t, s.Complete(ctx, rec.ID, "worker-1", []byte(`{"energy":-42.1}`)))

	stored, err := s.GetJob(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, stored.Status)
	assert.JSONEq(t, `{"energy":-42.1}`, string(stored.Result))
	require.NotNil(t, stored.DoneAt)
}

func TestComplete_RejectsNonOwner(t *testing.T) {
	s := newTestStorage(t)
	rec := claimTestJob(t, s, "worker-1")

	err := s.Complete(context.Background(), rec.ID, "worker-2", nil)
	assert.ErrorIs(t, err, core.ErrJobNotOwned)
}

func TestComplete_RejectsTerminalRow(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	rec := claimTestJob(t, s, "worker-1")
	require.NoError(t, s.Complete(ctx, rec.ID, "worker-1", nil))

	// A second completion attempt finds no running row to update.
	err := s.Complete(ctx, rec.ID, "worker-1", nil)
	assert.ErrorIs(t, err, core.ErrJobNotOwned)
}

func TestFail_StoresFailurePayload(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	rec := claimTestJob(t, s, "worker-1")

	payload := core.EncodeFailure(&core.CorrectionLimitError{Handler: "frozen-job", Limit: 3}, nil)
	require.NoError(t, s.Fail(ctx, rec.ID, "worker-1", payload))

	stored, err := s.GetJob(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusErrored, stored.Status)

	var limitErr *core.CorrectionLimitError
	require.ErrorAs(t, core.DecodeFailure(stored.Error), &limitErr)
	assert.Equal(t, "frozen-job", limitErr.Handler)
}

func TestFail_RejectsNonOwner(t *testing.T) {
	s := newTestStorage(t)
	rec := claimTestJob(t, s, "worker-1")

	err := s.Fail(context.Background(), rec.ID, "worker-2", []byte("{}"))
	assert.ErrorIs(t, err, core.ErrJobNotOwned)
}

// ─────────────────────────────────────────────────────────────────────────────
// Cancel
// ─────────────────────────────────────────────────────────────────────────────

func TestCancel_PendingJob(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	rec := submitTestJob(t, s, "relax-structure", 0)

	ok, err := s.Cancel(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := s.GetJob(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCancelled, stored.Status)
	require.NotNil(t, stored.DoneAt)
}

func TestCancel_RunningJobIsRefused(t *testing.T) {
	s := newTestStorage(t)
	rec := claimTestJob(t, s, "worker-1")

	ok, err := s.Cancel(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.False(t, ok, "only pending rows are cancellable")
}

// ─────────────────────────────────────────────────────────────────────────────
// NextPending / PendingCount
// ─────────────────────────────────────────────────────────────────────────────

func TestNextPending_OrdersByPriorityThenAge(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	low := submitTestJob(t, s, "low", 1)
	time.Sleep(10 * time.Millisecond)
	high := submitTestJob(t, s, "high", 5)
	time.Sleep(10 * time.Millisecond)
	alsoHigh := submitTestJob(t, s, "also-high", 5)

	recs, err := s.NextPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, high.ID, recs[0].ID, "highest priority first")
	assert.Equal(t, alsoHigh.ID, recs[1].ID, "FIFO within equal priority")
	assert.Equal(t, low.ID, recs[2].ID)
}

func TestNextPending_ExcludesClaimedAndTerminal(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	claimed := claimTestJob(t, s, "worker-1")
	pending := submitTestJob(t, s, "waiting", 0)
	cancelled := submitTestJob(t, s, "doomed", 0)
	_, err := s.Cancel(ctx, cancelled.ID)
	require.NoError(t, err)

	recs, err := s.NextPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, pending.ID, recs[0].ID)
	assert.NotEqual(t, claimed.ID, recs[0].ID)
}

func TestPendingCount(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	count, err := s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	submitTestJob(t, s, "a", 0)
	submitTestJob(t, s, "b", 0)
	claimTestJob(t, s, "worker-1")

	count, err = s.PendingCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

// ─────────────────────────────────────────────────────────────────────────────
// Corrections
// ─────────────────────────────────────────────────────────────────────────────

func TestCorrections_RoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	rec := claimTestJob(t, s, "worker-1")

	applied := time.Now().Truncate(time.Second)
	trail := []core.Correction{
		{Handler: "frozen-job", Error: core.ErrorDescriptor{Reason: "no output for 60s"}, Fix: "restarted", At: applied},
		{Handler: "unconverged", Error: core.ErrorDescriptor{Reason: "forces too large"}, Fix: "reduced step size", At: applied},
	}
	require.NoError(t, s.SaveCorrections(ctx, rec.ID, trail))

	got, err := s.GetCorrections(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "frozen-job", got[0].Handler)
	assert.Equal(t, "no output for 60s", got[0].Error.Reason)
	assert.Equal(t, "unconverged", got[1].Handler)
	assert.Equal(t, "reduced step size", got[1].Fix)
}

func TestSaveCorrections_IsIdempotent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	rec := claimTestJob(t, s, "worker-1")

	trail := []core.Correction{{Handler: "h", Fix: "f", At: time.Now()}}
	require.NoError(t, s.SaveCorrections(ctx, rec.ID, trail))
	require.NoError(t, s.SaveCorrections(ctx, rec.ID, trail))

	got, err := s.GetCorrections(ctx, rec.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1, "retried saves do not duplicate the trail")
}

func TestSaveCorrections_SanitizesStoredText(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	rec := claimTestJob(t, s, "worker-1")

	trail := []core.Correction{{
		Handler: "h",
		Error:   core.ErrorDescriptor{Reason: "bad\x00bytes"},
		Fix:     "fix\x1bed",
		At:      time.Now(),
	}}
	require.NoError(t, s.SaveCorrections(ctx, rec.ID, trail))

	got, err := s.GetCorrections(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, security.SanitizeStoredText("bad\x00bytes"), got[0].Error.Reason)
	assert.Equal(t, "fixed", got[0].Fix)
}

func TestGetCorrections_EmptyTrail(t *testing.T) {
	s := newTestStorage(t)

	got, err := s.GetCorrections(context.Background(), "no-such-job")
	require.NoError(t, err)
	assert.Empty(t, got)
}

// ─────────────────────────────────────────────────────────────────────────────
// GetJob / GetJobsByStatus
// ─────────────────────────────────────────────────────────────────────────────

func TestGetJob_MissingReturnsNil(t *testing.T) {
	s := newTestStorage(t)

	rec, err := s.GetJob(context.Background(), "no-such-job")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestGetJobsByStatus(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	submitTestJob(t, s, "a", 0)
	submitTestJob(t, s, "b", 0)
	claimTestJob(t, s, "worker-1")

	pending, err := s.GetJobsByStatus(ctx, core.StatusPending, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	running, err := s.GetJobsByStatus(ctx, core.StatusRunning, 10)
	require.NoError(t, err)
	assert.Len(t, running, 1)
}

// ─────────────────────────────────────────────────────────────────────────────
// ReleaseStale
// ─────────────────────────────────────────────────────────────────────────────

func TestReleaseStale_RequeuesAbandonedJobs(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	stale := claimTestJob(t, s, "crashed-worker")
	backdateClaim(t, s, stale.ID, 2*time.Hour)
	fresh := claimTestJob(t, s, "healthy-worker")

	n, err := s.ReleaseStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	requeued, err := s.GetJob(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, requeued.Status)
	assert.Empty(t, requeued.WorkerID)
	assert.Nil(t, requeued.ClaimedAt)

	untouched, err := s.GetJob(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusRunning, untouched.Status)
	assert.Equal(t, "healthy-worker", untouched.WorkerID)
}

func TestReleaseStale_IgnoresTerminalRows(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	done := claimTestJob(t, s, "worker-1")
	require.NoError(t, s.Complete(ctx, done.ID, "worker-1", nil))

	n, err := s.ReleaseStale(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}
