// Package models provides data model definitions for FixDesk Core.
package models

import "time"

// RepairStatus is the lifecycle state of a repair job.
type RepairStatus string

const (
	StatusPending   RepairStatus = "Pending"
	StatusCompleted RepairStatus = "Completed"
)

// Valid reports whether s is a known status.
func (s RepairStatus) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// RepairJob represents a tracked customer device repair.
//
// CompletedAt is non-nil iff Status is StatusCompleted. The store does not
// enforce this; mutate status only through MarkCompleted and MarkPending.
//
// PIN, Password and Pattern are device unlock credentials stored as plain
// columns in the repairs table.
type RepairJob struct {
	ID           int64        `db:"id" json:"id"`
	CustomerName string       `db:"customerName" json:"customer_name" validate:"required"`
	Phone        string       `db:"phone" json:"phone" validate:"required"`
	Model        string       `db:"model" json:"model" validate:"required"`
	IMEI         string       `db:"imei" json:"imei"`
	Problem      string       `db:"problem" json:"problem" validate:"required"`
	Status       RepairStatus `db:"status" json:"status" validate:"omitempty,oneof=Pending Completed"`
	ImagePath    string       `db:"imagePath" json:"image_path,omitempty"`
	CreatedAt    int64        `db:"createdAt" json:"created_at"`
	CompletedAt  *int64       `db:"completedAt" json:"completed_at,omitempty"`
	PIN          string       `db:"pin" json:"pin,omitempty"`
	Password     string       `db:"password" json:"password,omitempty"`
	Pattern      string       `db:"pattern" json:"pattern,omitempty"`
}

// NewRepairJob creates a pending repair job stamped with the current time.
func NewRepairJob(customerName, phone, model, imei, problem string) *RepairJob {
	return &RepairJob{
		CustomerName: customerName,
		Phone:        phone,
		Model:        model,
		IMEI:         imei,
		Problem:      problem,
		Status:       StatusPending,
		CreatedAt:    NowMillis(),
	}
}

// TableName returns the table name for RepairJob.
func (RepairJob) TableName() string {
	return "repairs"
}

// ApplyDefaults fills Status and CreatedAt when they are unset.
func (r *RepairJob) ApplyDefaults() {
	if r.Status == "" {
		r.Status = StatusPending
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = NowMillis()
	}
}

// IsCompleted reports whether the job has been completed.
func (r *RepairJob) IsCompleted() bool {
	return r.Status == StatusCompleted
}

// MarkCompleted flips the job to Completed and stamps CompletedAt.
func (r *RepairJob) MarkCompleted(at time.Time) {
	ms := at.UnixMilli()
	r.Status = StatusCompleted
	r.CompletedAt = &ms
}

// MarkPending flips the job back to Pending and clears CompletedAt.
func (r *RepairJob) MarkPending() {
	r.Status = StatusPending
	r.CompletedAt = nil
}

// CreatedAtTime returns CreatedAt as time.Time.
func (r *RepairJob) CreatedAtTime() time.Time {
	return time.UnixMilli(r.CreatedAt)
}

// CompletedAtTime returns CompletedAt as time.Time and whether it is set.
func (r *RepairJob) CompletedAtTime() (time.Time, bool) {
	if r.CompletedAt == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*r.CompletedAt), true
}

// Clone returns a deep copy of the job.
func (r *RepairJob) Clone() *RepairJob {
	c := *r
	if r.CompletedAt != nil {
		ms := *r.CompletedAt
		c.CompletedAt = &ms
	}
	return &c
}

// NowMillis returns the current time as epoch milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
