package repository

import (
	"context"
	"time"

	"coalition-api/models"

	"gorm.io/gorm"
)

type gormEmailHistoryRepository struct {
	db *gorm.DB
}

func NewEmailHistoryRepository(db *gorm.DB) EmailHistoryRepository {
	return &gormEmailHistoryRepository{db: db}
}

func (r *gormEmailHistoryRepository) Create(ctx context.Context, h *models.EmailHistory) error {
	return translate(r.db.WithContext(ctx).Create(h).Error)
}

func (r *gormEmailHistoryRepository) FindByID(ctx context.Context, id uint) (*models.EmailHistory, error) {
	var h models.EmailHistory
	if err := r.db.WithContext(ctx).First(&h, id).Error; err != nil {
		return nil, translate(err)
	}
	return &h, nil
}

func (r *gormEmailHistoryRepository) List(ctx context.Context, status models.EmailStatus, page models.PageRequest) ([]models.EmailHistory, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.EmailHistory{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.EmailHistory
	if err := pageQuery(query, page).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *gormEmailHistoryRepository) Update(ctx context.Context, h *models.EmailHistory) error {
	return translate(r.db.WithContext(ctx).Save(h).Error)
}

func (r *gormEmailHistoryRepository) DeleteScheduled(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.EmailScheduled).
		Delete(&models.EmailHistory{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return ErrNotScheduled
}

func (r *gormEmailHistoryRepository) DueScheduled(ctx context.Context, now time.Time, limit int) ([]models.EmailHistory, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ?", models.EmailScheduled, now).
		Order("scheduled_for ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.EmailHistory
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *gormEmailHistoryRepository) Claim(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.EmailHistory{}).
		Where("id = ? AND status = ?", id, models.EmailScheduled).
		Update("status", models.EmailSending)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *gormEmailHistoryRepository) CountByStatus(ctx context.Context, status models.EmailStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.EmailHistory{}).Where("status = ?", status).Count(&n).Error
	return n, err
}
