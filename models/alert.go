package models

import (
	"time"

	"gorm.io/datatypes"
)

type AlertPriority string

const (
	PriorityLow    AlertPriority = "LOW"
	PriorityMedium AlertPriority = "MEDIUM"
	PriorityHigh   AlertPriority = "HIGH"
	PriorityUrgent AlertPriority = "URGENT"
)

func ValidAlertPriority(p AlertPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type AlertStatus string

const (
	AlertActive   AlertStatus = "ACTIVE"
	AlertArchived AlertStatus = "ARCHIVED"
)

// Alert is an urgent notice that members may answer through its question set.
type Alert struct {
	ID        uint                          `gorm:"primaryKey;column:id" json:"id"`
	Title     string                        `gorm:"column:title;size:255;not null" json:"title"`
	Content   string                        `gorm:"column:content;type:text;not null" json:"content"`
	Priority  AlertPriority                 `gorm:"column:priority;size:16;default:MEDIUM" json:"priority"`
	Tags      datatypes.JSONSlice[string]   `gorm:"column:tags" json:"tags"`
	Questions datatypes.JSONSlice[Question] `gorm:"column:questions" json:"questions"`
	Status    AlertStatus                   `gorm:"column:status;size:16;default:ACTIVE" json:"status"`
	ExpiresAt *time.Time                    `gorm:"column:expires_at" json:"expiresAt,omitempty"`
	PublishState
	CreatedBy uint      `gorm:"column:created_by" json:"createdBy"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Alert) TableName() string { return "alerts" }

func (a *Alert) AudienceTags() []string { return a.Tags }

// AcceptsResponses is false once the alert is archived or expired.
func (a *Alert) AcceptsResponses(now time.Time) bool {
	if a.Status == AlertArchived {
		return false
	}
	return a.ExpiresAt == nil || now.Before(*a.ExpiresAt)
}
