package repository

import (
	"context"
	"time"

	"coalition-api/models"

	"gorm.io/gorm"
)

// ===== Alerts =====

type gormAlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &gormAlertRepository{db: db}
}

func (r *gormAlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	return translate(r.db.WithContext(ctx).Create(alert).Error)
}

func (r *gormAlertRepository) FindByID(ctx context.Context, id uint) (*models.Alert, error) {
	var alert models.Alert
	if err := r.db.WithContext(ctx).First(&alert, id).Error; err != nil {
		return nil, translate(err)
	}
	return &alert, nil
}

func (r *gormAlertRepository) List(ctx context.Context, filter AlertFilter) ([]models.Alert, error) {
	query := r.db.WithContext(ctx).Model(&models.Alert{})
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.PublishedOnly {
		query = query.Where("is_published = ?", true)
	}

	var alerts []models.Alert
	if err := query.Order("COALESCE(published_at, created_at) DESC").Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *gormAlertRepository) Update(ctx context.Context, alert *models.Alert) error {
	return translate(r.db.WithContext(ctx).Omit(notifiedAtColumn).Save(alert).Error)
}

func (r *gormAlertRepository) Publish(ctx context.Context, id uint, at time.Time) (bool, error) {
	return publishRow(ctx, r.db, &models.Alert{}, id, at)
}

func (r *gormAlertRepository) ClaimNotification(ctx context.Context, id uint, at time.Time) (bool, error) {
	return claimNotification(ctx, r.db, &models.Alert{}, id, at)
}

func (r *gormAlertRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(ctx, r.db, &models.Alert{}, id)
}

func (r *gormAlertRepository) CountPublished(ctx context.Context) (int64, error) {
	return countPublished(ctx, r.db, &models.Alert{})
}

// ===== Announcements =====

type gormAnnouncementRepository struct {
	db *gorm.DB
}

func NewAnnouncementRepository(db *gorm.DB) AnnouncementRepository {
	return &gormAnnouncementRepository{db: db}
}

func (r *gormAnnouncementRepository) Create(ctx context.Context, a *models.Announcement) error {
	return translate(r.db.WithContext(ctx).Create(a).Error)
}

func (r *gormAnnouncementRepository) FindByID(ctx context.Context, id uint) (*models.Announcement, error) {
	var a models.Announcement
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *gormAnnouncementRepository) List(ctx context.Context, publishedOnly bool) ([]models.Announcement, error) {
	query := r.db.WithContext(ctx).Model(&models.Announcement{})
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}

	var items []models.Announcement
	if err := query.
		Order("pinned DESC").
		Order("COALESCE(published_at, updated_at) DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *gormAnnouncementRepository) Update(ctx context.Context, a *models.Announcement) error {
	return translate(r.db.WithContext(ctx).Omit(notifiedAtColumn).Save(a).Error)
}

func (r *gormAnnouncementRepository) Publish(ctx context.Context, id uint, at time.Time) (bool, error) {
	return publishRow(ctx, r.db, &models.Announcement{}, id, at)
}

func (r *gormAnnouncementRepository) ClaimNotification(ctx context.Context, id uint, at time.Time) (bool, error) {
	return claimNotification(ctx, r.db, &models.Announcement{}, id, at)
}

func (r *gormAnnouncementRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(ctx, r.db, &models.Announcement{}, id)
}

func (r *gormAnnouncementRepository) CountPublished(ctx context.Context) (int64, error) {
	return countPublished(ctx, r.db, &models.Announcement{})
}

// ===== Surveys =====

type gormSurveyRepository struct {
	db *gorm.DB
}

func NewSurveyRepository(db *gorm.DB) SurveyRepository {
	return &gormSurveyRepository{db: db}
}

func (r *gormSurveyRepository) Create(ctx context.Context, s *models.Survey) error {
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *gormSurveyRepository) FindByID(ctx context.Context, id uint) (*models.Survey, error) {
	var s models.Survey
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *gormSurveyRepository) List(ctx context.Context, publishedOnly bool) ([]models.Survey, error) {
	query := r.db.WithContext(ctx).Model(&models.Survey{})
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}

	var items []models.Survey
	if err := query.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *gormSurveyRepository) Update(ctx context.Context, s *models.Survey) error {
	return translate(r.db.WithContext(ctx).Omit(notifiedAtColumn).Save(s).Error)
}

func (r *gormSurveyRepository) Publish(ctx context.Context, id uint, at time.Time) (bool, error) {
	return publishRow(ctx, r.db, &models.Survey{}, id, at)
}

func (r *gormSurveyRepository) ClaimNotification(ctx context.Context, id uint, at time.Time) (bool, error) {
	return claimNotification(ctx, r.db, &models.Survey{}, id, at)
}

func (r *gormSurveyRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(ctx, r.db, &models.Survey{}, id)
}

func (r *gormSurveyRepository) CountPublished(ctx context.Context) (int64, error) {
	return countPublished(ctx, r.db, &models.Survey{})
}

// ===== shared helpers =====

// notifiedAtColumn is written only by claimNotification, so a full-row save
// from a stale read cannot clear it.
const notifiedAtColumn = "notified_at"

func publishRow(ctx context.Context, db *gorm.DB, model interface{}, id uint, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Model(model).
		Where("id = ? AND is_published = ?", id, false).
		Updates(map[string]interface{}{"is_published": true, "published_at": at})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	return false, rowExists(ctx, db, model, id)
}

func claimNotification(ctx context.Context, db *gorm.DB, model interface{}, id uint, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Model(model).
		Where("id = ? AND is_published = ? AND notified_at IS NULL", id, true).
		Update(notifiedAtColumn, at)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// rowExists returns ErrNotFound when no row has the id.
func rowExists(ctx context.Context, db *gorm.DB, model interface{}, id uint) error {
	var n int64
	if err := db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func deleteByID(ctx context.Context, db *gorm.DB, model interface{}, id uint) error {
	res := db.WithContext(ctx).Delete(model, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func countPublished(ctx context.Context, db *gorm.DB, model interface{}) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(model).Where("is_published = ?", true).Count(&n).Error
	return n, err
}
