package models

import (
	"time"

	"gorm.io/datatypes"
)

type SurveyStatus string

const (
	SurveyOpen   SurveyStatus = "OPEN"
	SurveyClosed SurveyStatus = "CLOSED"
)

type Survey struct {
	ID          uint                          `gorm:"primaryKey;column:id" json:"id"`
	Title       string                        `gorm:"column:title;size:255;not null" json:"title"`
	Description string                        `gorm:"column:description;type:text" json:"description"`
	Questions   datatypes.JSONSlice[Question] `gorm:"column:questions" json:"questions"`
	Tags        datatypes.JSONSlice[string]   `gorm:"column:tags" json:"tags"`
	Status      SurveyStatus                  `gorm:"column:status;size:16;default:OPEN" json:"status"`
	ClosesAt    *time.Time                    `gorm:"column:closes_at" json:"closesAt,omitempty"`
	PublishState
	CreatedBy uint      `gorm:"column:created_by" json:"createdBy"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Survey) TableName() string { return "surveys" }

func (s *Survey) AudienceTags() []string { return s.Tags }

func (s *Survey) AcceptsResponses(now time.Time) bool {
	if s.Status == SurveyClosed {
		return false
	}
	return s.ClosesAt == nil || now.Before(*s.ClosesAt)
}
