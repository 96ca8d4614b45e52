package repository

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormBatchRepository struct {
	db *gorm.DB
}

func (r *gormBatchRepository) Create(ctx context.Context, batch *models.BatchConsumptionAction) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(batch).Error
}

func (r *gormBatchRepository) FindByCode(ctx context.Context, ownerId int, code string) (*models.BatchConsumptionAction, error) {
	var batch models.BatchConsumptionAction
	err := r.db.WithContext(ctx).Where("owner_id = ? AND batch_code = ?", ownerId, code).Take(&batch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *gormBatchRepository) Page(ctx context.Context, ownerId int, page models.PageRequest) (*models.Page[*models.BatchConsumptionAction], error) {
	dbCtx := r.db.WithContext(ctx).Model(&models.BatchConsumptionAction{}).
		Where("owner_id = ?", ownerId).
		Session(&gorm.Session{})

	var count int64
	if err := dbCtx.Count(&count).Error; err != nil {
		return nil, err
	}
	result := &models.Page[*models.BatchConsumptionAction]{
		Items:      []*models.BatchConsumptionAction{},
		TotalPages: models.TotalPages(count, page.Size),
		Page:       page.Page,
	}
	if count == 0 {
		return result, nil
	}
	if err := dbCtx.Order("created_at DESC, id DESC").
		Limit(page.Size).Offset(page.Offset()).
		Find(&result.Items).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *gormBatchRepository) SoftDelete(ctx context.Context, ownerId int, id int) (*models.BatchConsumptionAction, error) {
	var batch models.BatchConsumptionAction
	err := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerId, id).Take(&batch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&models.BatchConsumptionAction{}).
		Where("owner_id = ? AND id = ?", ownerId, id).
		Update("deleted_at", now)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, models.ErrNotFound
	}
	batch.DeletedAt = gorm.DeletedAt{Time: now, Valid: true}
	return &batch, nil
}
