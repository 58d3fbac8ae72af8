// Package db provides unit tests for CRUD repository operations.
package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kimhsiao/fixdesk/backend/internal/errors"
	"github.com/kimhsiao/fixdesk/backend/internal/models"
)

func newJob(name string, createdAt int64) *models.RepairJob {
	return &models.RepairJob{
		CustomerName: name,
		Phone:        "0912345678",
		Model:        "iPhone 12",
		IMEI:         "356938035643809",
		Problem:      "no power",
		CreatedAt:    createdAt,
	}
}

// =====================================================
// Repair Repository Tests
// =====================================================

func TestInsertRepair_assignsIDAndListsNewestFirst(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)
	defer repo.Close()
	ctx := context.Background()

	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	inserts := []struct {
		name  string
		hours int
	}{{"old", 0}, {"newest", 2}, {"middle", 1}}
	for _, in := range inserts {
		job := newJob(in.name, base.Add(time.Duration(in.hours)*time.Hour).UnixMilli())
		id, err := repo.InsertRepair(ctx, job)
		require.NoError(t, err)
		assert.NotZero(t, id)
		assert.Equal(t, id, job.ID)
		assert.Equal(t, models.StatusPending, job.Status, "status should default to Pending")
	}

	jobs, err := repo.ListRepairs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, []string{"newest", "middle", "old"},
		[]string{jobs[0].CustomerName, jobs[1].CustomerName, jobs[2].CustomerName})
	for i := 1; i < len(jobs); i++ {
		assert.GreaterOrEqual(t, jobs[i-1].CreatedAt, jobs[i].CreatedAt)
	}
}

func TestInsertRepair_defaultsCreatedAt(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)
	ctx := context.Background()

	job := newJob("Ana", 0)
	_, err := repo.InsertRepair(ctx, job)
	require.NoError(t, err)
	assert.NotZero(t, job.CreatedAt)
}

func TestUpdateRepair_completionRoundTrip(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)
	ctx := context.Background()

	job := newJob("Ana", 1700000000000)
	job.PIN = "1234"
	job.ImagePath = "/data/images/a.jpg"
	_, err := repo.InsertRepair(ctx, job)
	require.NoError(t, err)

	completed := job.Clone()
	completed.MarkCompleted(time.UnixMilli(1700000500000))

	n, err := repo.UpdateRepair(ctx, completed)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := repo.GetRepair(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.EqualValues(t, 1700000500000, *got.CompletedAt)

	// Untouched fields survive.
	assert.Equal(t, job.CustomerName, got.CustomerName)
	assert.Equal(t, job.Phone, got.Phone)
	assert.Equal(t, job.IMEI, got.IMEI)
	assert.Equal(t, job.CreatedAt, got.CreatedAt)
	assert.Equal(t, "1234", got.PIN)
	assert.Equal(t, "/data/images/a.jpg", got.ImagePath)
}

func TestUpdateRepair_missingIDAffectsNothing(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)
	ctx := context.Background()

	_, err := repo.InsertRepair(ctx, newJob("Ana", 1))
	require.NoError(t, err)

	ghost := newJob("Ghost", 2)
	ghost.ID = 999
	n, err := repo.UpdateRepair(ctx, ghost)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	jobs, err := repo.ListRepairs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Ana", jobs[0].CustomerName)
}

func TestDeleteRepair(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)
	ctx := context.Background()

	keep := newJob("keep", 1)
	drop := newJob("drop", 2)
	_, err := repo.InsertRepair(ctx, keep)
	require.NoError(t, err)
	_, err = repo.InsertRepair(ctx, drop)
	require.NoError(t, err)

	n, err := repo.DeleteRepair(ctx, drop.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.DeleteRepair(ctx, 424242)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	jobs, err := repo.ListRepairs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, keep.ID, jobs[0].ID)

	count, err := repo.CountRepairs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetRepair_notFound(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)

	_, err := repo.GetRepair(context.Background(), 5)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestListRepairs_empty(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)

	jobs, err := repo.ListRepairs(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, jobs)
	assert.Empty(t, jobs)
}

// =====================================================
// SMS Log Repository Tests
// =====================================================

func TestSmsLogs_appendAndListNewestFirst(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)
	ctx := context.Background()

	first := &models.SmsLog{ToNumber: "+95912345678", Message: "ready", SentAt: 100, Status: models.SmsSent}
	second := &models.SmsLog{ToNumber: "+95912345678", Message: "reminder", SentAt: 200, Status: models.SmsFailed}
	for _, l := range []*models.SmsLog{first, second} {
		id, err := repo.InsertSmsLog(ctx, l)
		require.NoError(t, err)
		assert.NotZero(t, id)
	}

	logs, err := repo.ListSmsLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "reminder", logs[0].Message)
	assert.Equal(t, models.SmsFailed, logs[0].Status)
	assert.Equal(t, "ready", logs[1].Message)

	count, err := repo.CountSmsLogs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestInsertSmsLog_rejectsUnknownStatus(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)

	_, err := repo.InsertSmsLog(context.Background(),
		&models.SmsLog{ToNumber: "1", Message: "m", Status: "queued"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrDatabase))
}

func TestRepository_Close(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)
	_, err := repo.ListRepairs(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.Close())
	// Statements are re-prepared after Close.
	_, err = repo.ListRepairs(context.Background())
	assert.NoError(t, err)
}
