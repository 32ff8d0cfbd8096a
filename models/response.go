package models

import (
	"time"

	"gorm.io/datatypes"
)

// AlertResponse holds one organization's answers to an alert. The unique
// index backs the one-response-per-organization rule.
type AlertResponse struct {
	ID             uint              `gorm:"primaryKey;column:id" json:"id"`
	AlertID        uint              `gorm:"column:alert_id;not null;uniqueIndex:idx_alert_response_org" json:"alertId"`
	OrganizationID uint              `gorm:"column:organization_id;not null;uniqueIndex:idx_alert_response_org" json:"organizationId"`
	Answers        datatypes.JSONMap `gorm:"column:answers" json:"answers"`
	SubmittedAt    time.Time         `gorm:"column:submitted_at" json:"submittedAt"`
	Organization   *Organization     `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

func (AlertResponse) TableName() string { return "alert_responses" }

type SurveyResponse struct {
	ID             uint              `gorm:"primaryKey;column:id" json:"id"`
	SurveyID       uint              `gorm:"column:survey_id;not null;uniqueIndex:idx_survey_response_org" json:"surveyId"`
	OrganizationID uint              `gorm:"column:organization_id;not null;uniqueIndex:idx_survey_response_org" json:"organizationId"`
	Answers        datatypes.JSONMap `gorm:"column:answers" json:"answers"`
	SubmittedAt    time.Time         `gorm:"column:submitted_at" json:"submittedAt"`
	Organization   *Organization     `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

func (SurveyResponse) TableName() string { return "survey_responses" }
