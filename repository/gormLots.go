package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"bitbucket.org/mmdatafocus/tradelog_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormLotRepository struct {
	db *gorm.DB
}

func (r *gormLotRepository) Create(ctx context.Context, lot *models.AcquisitionLot) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(lot).Error; err != nil {
		return err
	}
	lot.RefreshStatus()
	return nil
}

func (r *gormLotRepository) Update(ctx context.Context, lot *models.AcquisitionLot) error {
	result := r.db.WithContext(ctx).Model(&models.AcquisitionLot{}).
		Where("owner_id = ? AND id = ?", lot.OwnerId, lot.ID).
		Updates(map[string]interface{}{
			"item_type":        lot.ItemType,
			"acquisition_rate": lot.AcquisitionRate,
			"acquired_at":      lot.AcquiredAt,
			"remarks":          lot.Remarks,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *gormLotRepository) SoftDelete(ctx context.Context, ownerId int, id int) (*models.AcquisitionLot, error) {
	lot, err := r.FindOne(ctx, ownerId, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&models.AcquisitionLot{}).
		Where("owner_id = ? AND id = ?", ownerId, id).
		Update("deleted_at", now)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, models.ErrNotFound
	}
	lot.DeletedAt = gorm.DeletedAt{Time: now, Valid: true}
	return lot, nil
}

func (r *gormLotRepository) FindOne(ctx context.Context, ownerId int, id int) (*models.AcquisitionLot, error) {
	var lot models.AcquisitionLot
	err := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerId, id).Take(&lot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *gormLotRepository) LockActive(ctx context.Context, ownerId int, ids []int) ([]*models.AcquisitionLot, error) {
	var lots []*models.AcquisitionLot
	if len(ids) == 0 {
		return lots, nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_id = ? AND id IN ?", ownerId, ids).
		Order("id ASC").
		Find(&lots).Error
	if err != nil {
		return nil, err
	}
	return lots, nil
}

func (r *gormLotRepository) SetRemaining(ctx context.Context, id int, remaining decimal.Decimal) error {
	result := r.db.WithContext(ctx).Model(&models.AcquisitionLot{}).
		Where("id = ?", id).
		Update("quantity_remaining", remaining)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *gormLotRepository) Search(ctx context.Context, ownerId int, search models.LotSearch, limit int) ([]*models.AcquisitionLot, error) {
	dbCtx := r.db.WithContext(ctx).Where("owner_id = ?", ownerId)
	if !search.IncludeDepleted {
		dbCtx = dbCtx.Where("quantity_remaining > 0")
	}
	if floor, ok := search.RateFloor(); ok {
		dbCtx = dbCtx.Where("acquisition_rate >= ?", floor)
	} else if q := search.Text(); q != "" {
		dbCtx = dbCtx.Where("LOWER(remarks) LIKE ? ESCAPE '!'", "%"+escapeLike(strings.ToLower(q))+"%")
	}
	if limit > 0 {
		dbCtx = dbCtx.Limit(limit)
	}

	var lots []*models.AcquisitionLot
	if err := dbCtx.Order("created_at DESC, id DESC").Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

func (r *gormLotRepository) Page(ctx context.Context, ownerId int, page models.PageRequest, filter models.LotFilter) (*models.Page[*models.AcquisitionLot], error) {
	dbCtx := r.db.WithContext(ctx).Model(&models.AcquisitionLot{}).Where("owner_id = ?", ownerId)
	if filter.ItemType != "" {
		dbCtx = dbCtx.Where("item_type = ?", filter.ItemType)
	}
	if !filter.IncludeDepleted {
		dbCtx = dbCtx.Where("quantity_remaining > 0")
	}
	dbCtx = dbCtx.Session(&gorm.Session{})

	var count int64
	if err := dbCtx.Count(&count).Error; err != nil {
		return nil, err
	}
	result := &models.Page[*models.AcquisitionLot]{
		Items:      []*models.AcquisitionLot{},
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

func (r *gormLotRepository) ListActive(ctx context.Context, ownerId int) ([]*models.AcquisitionLot, error) {
	var lots []*models.AcquisitionLot
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerId).Order("acquired_at ASC, id ASC").Find(&lots).Error
	if err != nil {
		return nil, err
	}
	return lots, nil
}

func (r *gormLotRepository) ActiveIds(ctx context.Context, ownerId int) ([]int, error) {
	var ids []int
	err := r.db.WithContext(ctx).Model(&models.AcquisitionLot{}).
		Where("owner_id = ?", ownerId).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *gormLotRepository) OwnerOf(ctx context.Context, id int) (int, bool, error) {
	ctx = utils.SetSkipOwnerScopeInContext(ctx, true)
	var ownerIds []int
	err := r.db.WithContext(ctx).Model(&models.AcquisitionLot{}).
		Where("id = ?", id).
		Limit(1).
		Pluck("owner_id", &ownerIds).Error
	if err != nil {
		return 0, false, err
	}
	if len(ownerIds) == 0 {
		return 0, false, nil
	}
	return ownerIds[0], true, nil
}

// escapeLike pairs with ESCAPE '!', which MySQL and sqlite both accept.
func escapeLike(s string) string {
	return strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`).Replace(s)
}
