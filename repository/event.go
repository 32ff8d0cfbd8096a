package repository

import (
	"context"
	"strings"
	"time"

	"coalition-api/models"

	"gorm.io/gorm"
)

type gormEventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &gormEventRepository{db: db}
}

func (r *gormEventRepository) Create(ctx context.Context, e *models.Event) error {
	return translate(r.db.WithContext(ctx).Create(e).Error)
}

func (r *gormEventRepository) FindByID(ctx context.Context, id uint) (*models.Event, error) {
	var e models.Event
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r *gormEventRepository) List(ctx context.Context, filter EventFilter) ([]models.Event, error) {
	query := r.db.WithContext(ctx).Model(&models.Event{})
	if filter.PublishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if filter.UpcomingFrom != nil {
		query = query.Where("starts_at >= ?", *filter.UpcomingFrom)
	}

	var events []models.Event
	if err := query.Order("starts_at ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *gormEventRepository) Update(ctx context.Context, e *models.Event) error {
	return translate(r.db.WithContext(ctx).Omit(notifiedAtColumn).Save(e).Error)
}

func (r *gormEventRepository) Publish(ctx context.Context, id uint, at time.Time) (bool, error) {
	return publishRow(ctx, r.db, &models.Event{}, id, at)
}

func (r *gormEventRepository) ClaimNotification(ctx context.Context, id uint, at time.Time) (bool, error) {
	return claimNotification(ctx, r.db, &models.Event{}, id, at)
}

func (r *gormEventRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(ctx, r.db, &models.Event{}, id)
}

func (r *gormEventRepository) CountPublished(ctx context.Context) (int64, error) {
	return countPublished(ctx, r.db, &models.Event{})
}

func (r *gormEventRepository) CreateRSVP(ctx context.Context, rsvp *models.EventRSVP) error {
	return translate(r.db.WithContext(ctx).Create(rsvp).Error)
}

func (r *gormEventRepository) FindRSVPByOrganization(ctx context.Context, eventID, orgID uint) (*models.EventRSVP, error) {
	var rsvp models.EventRSVP
	if err := r.db.WithContext(ctx).
		Where("event_id = ? AND organization_id = ?", eventID, orgID).
		First(&rsvp).Error; err != nil {
		return nil, translate(err)
	}
	return &rsvp, nil
}

func (r *gormEventRepository) FindRSVPByEmail(ctx context.Context, eventID uint, email string) (*models.EventRSVP, error) {
	var rsvp models.EventRSVP
	if err := r.db.WithContext(ctx).
		Where("event_id = ? AND email = ?", eventID, strings.ToLower(strings.TrimSpace(email))).
		First(&rsvp).Error; err != nil {
		return nil, translate(err)
	}
	return &rsvp, nil
}

func (r *gormEventRepository) UpdateRSVP(ctx context.Context, rsvp *models.EventRSVP) error {
	return translate(r.db.WithContext(ctx).Save(rsvp).Error)
}

func (r *gormEventRepository) ListRSVPs(ctx context.Context, eventID uint) ([]models.EventRSVP, error) {
	var rsvps []models.EventRSVP
	if err := r.db.WithContext(ctx).
		Preload("Organization").
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&rsvps).Error; err != nil {
		return nil, err
	}
	return rsvps, nil
}

func (r *gormEventRepository) CountRSVPs(ctx context.Context, eventID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.EventRSVP{}).Where("event_id = ?", eventID).Count(&n).Error
	return n, err
}

func (r *gormEventRepository) ConfirmedAttendees(ctx context.Context, eventID uint) (int64, error) {
	var total struct{ Total int64 }
	err := r.db.WithContext(ctx).Model(&models.EventRSVP{}).
		Select("COALESCE(SUM(attendees), 0) AS total").
		Where("event_id = ? AND status = ?", eventID, models.RSVPConfirmed).
		Scan(&total).Error
	return total.Total, err
}
