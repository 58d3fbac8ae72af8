package models

import "time"

// SmsStatus is the outcome of one outbound SMS attempt.
type SmsStatus string

const (
	SmsSent   SmsStatus = "sent"
	SmsFailed SmsStatus = "failed"
)

// SmsLog represents one outbound message attempt. Rows are append-only.
type SmsLog struct {
	ID       int64     `db:"id" json:"id"`
	ToNumber string    `db:"toNumber" json:"to_number"`
	Message  string    `db:"message" json:"message"`
	SentAt   int64     `db:"sentAt" json:"sent_at"`
	Status   SmsStatus `db:"status" json:"status"`
}

// NewSmsLog creates a log entry stamped with the current time.
func NewSmsLog(toNumber, message string, status SmsStatus) *SmsLog {
	return &SmsLog{
		ToNumber: toNumber,
		Message:  message,
		SentAt:   NowMillis(),
		Status:   status,
	}
}

// TableName returns the table name for SmsLog.
func (SmsLog) TableName() string {
	return "sms_logs"
}

// SentAtTime returns SentAt as time.Time.
func (s *SmsLog) SentAtTime() time.Time {
	return time.UnixMilli(s.SentAt)
}
