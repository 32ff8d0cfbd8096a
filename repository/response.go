package repository

import (
	"context"

	"coalition-api/models"

	"gorm.io/gorm"
)

type gormResponseRepository struct {
	db *gorm.DB
}

func NewResponseRepository(db *gorm.DB) ResponseRepository {
	return &gormResponseRepository{db: db}
}

// ===== Alert responses =====

func (r *gormResponseRepository) AlertResponseExists(ctx context.Context, alertID, orgID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.AlertResponse{}).
		Where("alert_id = ? AND organization_id = ?", alertID, orgID).
		Count(&n).Error
	return n > 0, err
}

func (r *gormResponseRepository) CreateAlertResponse(ctx context.Context, resp *models.AlertResponse) error {
	return translate(r.db.WithContext(ctx).Create(resp).Error)
}

func (r *gormResponseRepository) ListAlertResponses(ctx context.Context, alertID uint, page models.PageRequest) ([]models.AlertResponse, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AlertResponse{})
	if alertID != 0 {
		query = query.Where("alert_id = ?", alertID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.AlertResponse
	if err := pageQuery(query, page).
		Preload("Organization").
		Order("submitted_at DESC").
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *gormResponseRepository) AllAlertResponses(ctx context.Context, alertID uint) ([]models.AlertResponse, error) {
	var rows []models.AlertResponse
	err := r.db.WithContext(ctx).
		Preload("Organization").
		Where("alert_id = ?", alertID).
		Order("submitted_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *gormResponseRepository) AlertResponsesByOrganization(ctx context.Context, orgID uint) ([]models.AlertResponse, error) {
	var rows []models.AlertResponse
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("submitted_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *gormResponseRepository) CountAlertResponses(ctx context.Context, alertID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.AlertResponse{}).Where("alert_id = ?", alertID).Count(&n).Error
	return n, err
}

// ===== Survey responses =====

func (r *gormResponseRepository) SurveyResponseExists(ctx context.Context, surveyID, orgID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.SurveyResponse{}).
		Where("survey_id = ? AND organization_id = ?", surveyID, orgID).
		Count(&n).Error
	return n > 0, err
}

func (r *gormResponseRepository) CreateSurveyResponse(ctx context.Context, resp *models.SurveyResponse) error {
	return translate(r.db.WithContext(ctx).Create(resp).Error)
}

func (r *gormResponseRepository) ListSurveyResponses(ctx context.Context, surveyID uint, page models.PageRequest) ([]models.SurveyResponse, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SurveyResponse{})
	if surveyID != 0 {
		query = query.Where("survey_id = ?", surveyID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.SurveyResponse
	if err := pageQuery(query, page).
		Preload("Organization").
		Order("submitted_at DESC").
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *gormResponseRepository) AllSurveyResponses(ctx context.Context, surveyID uint) ([]models.SurveyResponse, error) {
	var rows []models.SurveyResponse
	err := r.db.WithContext(ctx).
		Preload("Organization").
		Where("survey_id = ?", surveyID).
		Order("submitted_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *gormResponseRepository) SurveyResponsesByOrganization(ctx context.Context, orgID uint) ([]models.SurveyResponse, error) {
	var rows []models.SurveyResponse
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("submitted_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *gormResponseRepository) CountSurveyResponses(ctx context.Context, surveyID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.SurveyResponse{}).Where("survey_id = ?", surveyID).Count(&n).Error
	return n, err
}

func (r *gormResponseRepository) CountAll(ctx context.Context) (int64, error) {
	var alerts, surveys int64
	if err := r.db.WithContext(ctx).Model(&models.AlertResponse{}).Count(&alerts).Error; err != nil {
		return 0, err
	}
	if err := r.db.WithContext(ctx).Model(&models.SurveyResponse{}).Count(&surveys).Error; err != nil {
		return 0, err
	}
	return alerts + surveys, nil
}
