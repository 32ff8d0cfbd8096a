package repository

import (
	"context"
	"sort"
	"time"

	"coalition-api/models"

	"gorm.io/gorm"
)

type gormPageContentRepository struct {
	db *gorm.DB
}

func NewPageContentRepository(db *gorm.DB) PageContentRepository {
	return &gormPageContentRepository{db: db}
}

func (r *gormPageContentRepository) ListByPage(ctx context.Context, page string) ([]models.PageContent, error) {
	var rows []models.PageContent
	err := r.db.WithContext(ctx).
		Where("page = ?", page).
		Order("section_key ASC").
		Find(&rows).Error
	return rows, err
}

func (r *gormPageContentRepository) FindByID(ctx context.Context, id uint) (*models.PageContent, error) {
	var pc models.PageContent
	if err := r.db.WithContext(ctx).First(&pc, id).Error; err != nil {
		return nil, translate(err)
	}
	return &pc, nil
}

func (r *gormPageContentRepository) Create(ctx context.Context, pc *models.PageContent) error {
	return translate(r.db.WithContext(ctx).Create(pc).Error)
}

func (r *gormPageContentRepository) Update(ctx context.Context, pc *models.PageContent) error {
	return translate(r.db.WithContext(ctx).Save(pc).Error)
}

func (r *gormPageContentRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(ctx, r.db, &models.PageContent{}, id)
}

func (r *gormPageContentRepository) BulkUpdate(ctx context.Context, updates []PageContentUpdate, updatedBy uint) ([]string, error) {
	pages := map[string]bool{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, u := range updates {
			var pc models.PageContent
			if err := tx.First(&pc, u.ID).Error; err != nil {
				return translate(err)
			}
			if err := tx.Model(&pc).Updates(map[string]interface{}{
				"content_value": u.ContentValue,
				"updated_by":    updatedBy,
				"updated_at":    now,
			}).Error; err != nil {
				return err
			}
			pages[pc.Page] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(pages))
	for p := range pages {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
