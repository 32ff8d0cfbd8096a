package repository

import (
	"context"
	"encoding/json"
	"strings"

	"coalition-api/models"

	"gorm.io/gorm"
)

type gormOrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &gormOrganizationRepository{db: db}
}

func (r *gormOrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	return translate(r.db.WithContext(ctx).Create(org).Error)
}

func (r *gormOrganizationRepository) FindByID(ctx context.Context, id uint) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).First(&org, id).Error; err != nil {
		return nil, translate(err)
	}
	return &org, nil
}

func (r *gormOrganizationRepository) FindByEmail(ctx context.Context, email string) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&org).Error; err != nil {
		return nil, translate(err)
	}
	return &org, nil
}

func (r *gormOrganizationRepository) List(ctx context.Context, filter OrganizationFilter) ([]models.Organization, error) {
	query := r.db.WithContext(ctx).Model(&models.Organization{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Region != "" {
		query = query.Where("region = ?", filter.Region)
	}
	if filter.Size != "" {
		query = query.Where("size = ?", filter.Size)
	}
	if filter.Tag != "" {
		tag, err := json.Marshal(strings.ToLower(strings.TrimSpace(filter.Tag)))
		if err != nil {
			return nil, err
		}
		query = query.Where("JSON_CONTAINS(tags, ?)", string(tag))
	}

	var orgs []models.Organization
	if err := query.Order("name ASC").Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

func (r *gormOrganizationRepository) ListActiveMembers(ctx context.Context) ([]models.Organization, error) {
	return r.List(ctx, OrganizationFilter{Status: models.OrganizationActive, Role: models.RoleMember})
}

func (r *gormOrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	return translate(r.db.WithContext(ctx).Save(org).Error)
}

func (r *gormOrganizationRepository) CountByStatus(ctx context.Context) (map[models.OrganizationStatus]int64, error) {
	var rows []struct {
		Status models.OrganizationStatus
		Total  int64
	}
	if err := r.db.WithContext(ctx).Model(&models.Organization{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[models.OrganizationStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}
