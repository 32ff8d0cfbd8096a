// Package repository holds the persistence interfaces used by controllers
// and services, and their gorm implementations.
package repository

import (
	"context"
	"errors"
	"time"

	"coalition-api/models"

	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicate    = errors.New("duplicate record")
	ErrNotScheduled = errors.New("email is not scheduled")
)

type OrganizationFilter struct {
	Status models.OrganizationStatus
	Role   models.Role
	Tag    string
	Region string
	Size   string
}

type OrganizationRepository interface {
	Create(ctx context.Context, org *models.Organization) error
	FindByID(ctx context.Context, id uint) (*models.Organization, error)
	FindByEmail(ctx context.Context, email string) (*models.Organization, error)
	List(ctx context.Context, filter OrganizationFilter) ([]models.Organization, error)
	// ListActiveMembers returns ACTIVE organizations with the MEMBER role.
	ListActiveMembers(ctx context.Context) ([]models.Organization, error)
	Update(ctx context.Context, org *models.Organization) error
	CountByStatus(ctx context.Context) (map[models.OrganizationStatus]int64, error)
}

type AlertFilter struct {
	Priority      models.AlertPriority
	PublishedOnly bool
}

// PublishClaims are the conditional writes on the publish columns shared by
// alerts, announcements, events and surveys.
type PublishClaims interface {
	// Publish moves a draft to published. False means it was already published.
	Publish(ctx context.Context, id uint, at time.Time) (bool, error)
	// ClaimNotification stamps notified_at on a published item once. Only the
	// caller that gets true may notify the audience.
	ClaimNotification(ctx context.Context, id uint, at time.Time) (bool, error)
}

type AlertRepository interface {
	PublishClaims
	Create(ctx context.Context, alert *models.Alert) error
	FindByID(ctx context.Context, id uint) (*models.Alert, error)
	List(ctx context.Context, filter AlertFilter) ([]models.Alert, error)
	Update(ctx context.Context, alert *models.Alert) error
	Delete(ctx context.Context, id uint) error
	CountPublished(ctx context.Context) (int64, error)
}

type AnnouncementRepository interface {
	PublishClaims
	Create(ctx context.Context, a *models.Announcement) error
	FindByID(ctx context.Context, id uint) (*models.Announcement, error)
	List(ctx context.Context, publishedOnly bool) ([]models.Announcement, error)
	Update(ctx context.Context, a *models.Announcement) error
	Delete(ctx context.Context, id uint) error
	CountPublished(ctx context.Context) (int64, error)
}

type EventFilter struct {
	PublishedOnly bool
	UpcomingFrom  *time.Time
}

type EventRepository interface {
	PublishClaims
	Create(ctx context.Context, e *models.Event) error
	FindByID(ctx context.Context, id uint) (*models.Event, error)
	List(ctx context.Context, filter EventFilter) ([]models.Event, error)
	Update(ctx context.Context, e *models.Event) error
	Delete(ctx context.Context, id uint) error
	CountPublished(ctx context.Context) (int64, error)

	CreateRSVP(ctx context.Context, rsvp *models.EventRSVP) error
	FindRSVPByOrganization(ctx context.Context, eventID, orgID uint) (*models.EventRSVP, error)
	FindRSVPByEmail(ctx context.Context, eventID uint, email string) (*models.EventRSVP, error)
	UpdateRSVP(ctx context.Context, rsvp *models.EventRSVP) error
	ListRSVPs(ctx context.Context, eventID uint) ([]models.EventRSVP, error)
	// CountRSVPs counts every RSVP row for the event regardless of status.
	CountRSVPs(ctx context.Context, eventID uint) (int64, error)
	// ConfirmedAttendees sums attendees over CONFIRMED RSVPs.
	ConfirmedAttendees(ctx context.Context, eventID uint) (int64, error)
}

type SurveyRepository interface {
	PublishClaims
	Create(ctx context.Context, s *models.Survey) error
	FindByID(ctx context.Context, id uint) (*models.Survey, error)
	List(ctx context.Context, publishedOnly bool) ([]models.Survey, error)
	Update(ctx context.Context, s *models.Survey) error
	Delete(ctx context.Context, id uint) error
	CountPublished(ctx context.Context) (int64, error)
}

type ResponseRepository interface {
	AlertResponseExists(ctx context.Context, alertID, orgID uint) (bool, error)
	CreateAlertResponse(ctx context.Context, r *models.AlertResponse) error
	ListAlertResponses(ctx context.Context, alertID uint, page models.PageRequest) ([]models.AlertResponse, int64, error)
	AllAlertResponses(ctx context.Context, alertID uint) ([]models.AlertResponse, error)
	AlertResponsesByOrganization(ctx context.Context, orgID uint) ([]models.AlertResponse, error)
	CountAlertResponses(ctx context.Context, alertID uint) (int64, error)

	SurveyResponseExists(ctx context.Context, surveyID, orgID uint) (bool, error)
	CreateSurveyResponse(ctx context.Context, r *models.SurveyResponse) error
	ListSurveyResponses(ctx context.Context, surveyID uint, page models.PageRequest) ([]models.SurveyResponse, int64, error)
	AllSurveyResponses(ctx context.Context, surveyID uint) ([]models.SurveyResponse, error)
	SurveyResponsesByOrganization(ctx context.Context, orgID uint) ([]models.SurveyResponse, error)
	CountSurveyResponses(ctx context.Context, surveyID uint) (int64, error)

	CountAll(ctx context.Context) (int64, error)
}

type EmailHistoryRepository interface {
	Create(ctx context.Context, h *models.EmailHistory) error
	FindByID(ctx context.Context, id uint) (*models.EmailHistory, error)
	List(ctx context.Context, status models.EmailStatus, page models.PageRequest) ([]models.EmailHistory, int64, error)
	Update(ctx context.Context, h *models.EmailHistory) error
	// DeleteScheduled removes the row only while it is SCHEDULED.
	DeleteScheduled(ctx context.Context, id uint) error
	// DueScheduled lists SCHEDULED rows whose send time has passed.
	DueScheduled(ctx context.Context, now time.Time, limit int) ([]models.EmailHistory, error)
	// Claim moves a row from SCHEDULED to SENDING; false means another
	// dispatcher (or a delete) got there first.
	Claim(ctx context.Context, id uint) (bool, error)
	CountByStatus(ctx context.Context, status models.EmailStatus) (int64, error)
}

type PageContentUpdate struct {
	ID           uint   `json:"id" binding:"required"`
	ContentValue string `json:"contentValue"`
}

type PageContentRepository interface {
	ListByPage(ctx context.Context, page string) ([]models.PageContent, error)
	FindByID(ctx context.Context, id uint) (*models.PageContent, error)
	Create(ctx context.Context, pc *models.PageContent) error
	Update(ctx context.Context, pc *models.PageContent) error
	Delete(ctx context.Context, id uint) error
	// BulkUpdate applies every update or none. It returns the affected pages.
	BulkUpdate(ctx context.Context, updates []PageContentUpdate, updatedBy uint) ([]string, error)
}

// Store groups the repositories wired at startup.
type Store struct {
	Organizations OrganizationRepository
	Alerts        AlertRepository
	Announcements AnnouncementRepository
	Events        EventRepository
	Surveys       SurveyRepository
	Responses     ResponseRepository
	Emails        EmailHistoryRepository
	PageContent   PageContentRepository
}

// NewGormStore wires every repository to db.
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Organizations: NewOrganizationRepository(db),
		Alerts:        NewAlertRepository(db),
		Announcements: NewAnnouncementRepository(db),
		Events:        NewEventRepository(db),
		Surveys:       NewSurveyRepository(db),
		Responses:     NewResponseRepository(db),
		Emails:        NewEmailHistoryRepository(db),
		PageContent:   NewPageContentRepository(db),
	}
}

// translate maps gorm errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

func pageQuery(db *gorm.DB, page models.PageRequest) *gorm.DB {
	return db.Limit(page.Limit).Offset(page.Offset())
}
