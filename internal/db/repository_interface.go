// Package db provides repository interfaces for FixDesk data models.
package db

import (
	"context"

	"github.com/kimhsiao/fixdesk/backend/internal/models"
)

// RepairRepository defines operations for repair job persistence.
type RepairRepository interface {
	// InsertRepair stores a new job and returns the assigned ID.
	InsertRepair(ctx context.Context, job *models.RepairJob) (int64, error)

	// UpdateRepair overwrites the job with the same ID; returns rows affected.
	UpdateRepair(ctx context.Context, job *models.RepairJob) (int64, error)

	// DeleteRepair removes a job by ID; returns rows affected.
	DeleteRepair(ctx context.Context, id int64) (int64, error)

	// ListRepairs returns all jobs, newest createdAt first.
	ListRepairs(ctx context.Context) ([]*models.RepairJob, error)
}

// SmsLogRepository defines append-only operations for SMS log persistence.
type SmsLogRepository interface {
	// InsertSmsLog appends an entry and returns the assigned ID.
	InsertSmsLog(ctx context.Context, log *models.SmsLog) (int64, error)

	// ListSmsLogs returns all entries, newest sentAt first.
	ListSmsLogs(ctx context.Context) ([]*models.SmsLog, error)
}

// Store combines the repositories the application state reloads from.
type Store interface {
	RepairRepository
	SmsLogRepository
}

// Ensure *Repository implements the interfaces at compile time.
var (
	_ RepairRepository = (*Repository)(nil)
	_ SmsLogRepository = (*Repository)(nil)
	_ Store            = (*Repository)(nil)
)
