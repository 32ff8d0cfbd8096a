package models

import (
	"time"

	"gorm.io/datatypes"
)

type EmailStatus string

const (
	EmailScheduled EmailStatus = "SCHEDULED"
	EmailSending   EmailStatus = "SENDING"
	EmailSent      EmailStatus = "SENT"
	EmailFailed    EmailStatus = "FAILED"
)

// EmailHistory records a custom email composed by an administrator.
// SENDING is held only while the dispatcher owns the row.
type EmailHistory struct {
	ID           uint                        `gorm:"primaryKey;column:id" json:"id"`
	Subject      string                      `gorm:"column:subject;size:255;not null" json:"subject"`
	Body         string                      `gorm:"column:body;type:text;not null" json:"body"`
	Recipients   datatypes.JSONSlice[string] `gorm:"column:recipients" json:"recipients"`
	Status       EmailStatus                 `gorm:"column:status;size:16;index" json:"status"`
	ScheduledFor *time.Time                  `gorm:"column:scheduled_for;index" json:"scheduledFor,omitempty"`
	SentAt       *time.Time                  `gorm:"column:sent_at" json:"sentAt,omitempty"`
	SentCount    int                         `gorm:"column:sent_count" json:"sentCount"`
	FailedCount  int                         `gorm:"column:failed_count" json:"failedCount"`
	CreatedBy    uint                        `gorm:"column:created_by" json:"createdBy"`
	CreatedAt    time.Time                   `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt    time.Time                   `gorm:"column:updated_at" json:"updatedAt"`
}

func (EmailHistory) TableName() string { return "email_history" }

func ValidEmailStatus(s EmailStatus) bool {
	switch s {
	case EmailScheduled, EmailSending, EmailSent, EmailFailed:
		return true
	}
	return false
}
