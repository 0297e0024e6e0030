package jobs

import (
	"context"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/bookatlas-backend/internal/data/repos/testutil"
	types "github.com/yungbote/bookatlas-backend/internal/domain/jobs"
	"github.com/yungbote/bookatlas-backend/internal/platform/dbctx"
)

func ptrTime(t time.Time) *time.Time { return &t }

func TestJobRunRepoClaimNextRunnable(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewJobRunRepo(db, testutil.Logger(t))
	dbc := dbctx.WithTx(context.Background(), tx)

	const maxAttempts = 5
	retryDelay := 30 * time.Second
	staleRunning := 30 * time.Minute
	now := time.Now().UTC()

	queued, err := repo.Create(dbc, &types.JobRun{
		JobType: "ingest_books",
		Status:  types.StatusQueued,
		Payload: datatypes.JSON([]byte(`{"query":"dune"}`)),
	})
	if err != nil {
		t.Fatalf("Create queued: %v", err)
	}

	claimed, err := repo.ClaimNextRunnable(dbc, maxAttempts, retryDelay, staleRunning)
	if err != nil {
		t.Fatalf("ClaimNextRunnable: %v", err)
	}
	if claimed == nil || claimed.ID != queued.ID {
		t.Fatalf("expected to claim %s, got %+v", queued.ID, claimed)
	}
	if claimed.Status != types.StatusRunning {
		t.Fatalf("claimed job must be running, got %q", claimed.Status)
	}
	if claimed.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", claimed.Attempts)
	}
	if claimed.LockedAt == nil {
		t.Fatal("locked_at must be set on claim")
	}

	// Nothing else runnable: freshly running rows are locked.
	again, err := repo.ClaimNextRunnable(dbc, maxAttempts, retryDelay, staleRunning)
	if err != nil {
		t.Fatalf("ClaimNextRunnable (again): %v", err)
	}
	if again != nil {
		t.Fatalf("no runnable jobs expected, got %+v", again)
	}

	// A failed job inside its retry delay stays parked; past it, it runs again.
	if err := repo.UpdateFields(dbc, claimed.ID, map[string]interface{}{
		"status":        types.StatusFailed,
		"locked_at":     nil,
		"last_error_at": now,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if got, _ := repo.ClaimNextRunnable(dbc, maxAttempts, retryDelay, staleRunning); got != nil {
		t.Fatalf("failed job within retry delay must not be claimed, got %+v", got)
	}

	if err := repo.UpdateFields(dbc, claimed.ID, map[string]interface{}{
		"last_error_at": now.Add(-time.Minute),
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	retried, err := repo.ClaimNextRunnable(dbc, maxAttempts, retryDelay, staleRunning)
	if err != nil {
		t.Fatalf("ClaimNextRunnable (retry): %v", err)
	}
	if retried == nil || retried.ID != claimed.ID {
		t.Fatalf("expected retry claim of %s, got %+v", claimed.ID, retried)
	}
	if retried.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", retried.Attempts)
	}

	// Exhausted attempts never run again.
	if err := repo.UpdateFields(dbc, claimed.ID, map[string]interface{}{
		"status":        types.StatusFailed,
		"attempts":      maxAttempts,
		"locked_at":     nil,
		"last_error_at": now.Add(-time.Hour),
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if got, _ := repo.ClaimNextRunnable(dbc, maxAttempts, retryDelay, staleRunning); got != nil {
		t.Fatalf("exhausted job must not be claimed, got %+v", got)
	}
}

func TestJobRunRepoClaimsStaleRunning(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewJobRunRepo(db, testutil.Logger(t))
	dbc := dbctx.WithTx(context.Background(), tx)

	stale, err := repo.Create(dbc, &types.JobRun{
		JobType:  "ingest_books",
		Status:   types.StatusRunning,
		LockedAt: ptrTime(time.Now().UTC().Add(-2 * time.Hour)),
		Payload:  datatypes.JSON([]byte(`{}`)),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	claimed, err := repo.ClaimNextRunnable(dbc, 5, 30*time.Second, 30*time.Minute)
	if err != nil {
		t.Fatalf("ClaimNextRunnable: %v", err)
	}
	if claimed == nil || claimed.ID != stale.ID {
		t.Fatalf("stale running job should be reclaimed, got %+v", claimed)
	}
}
