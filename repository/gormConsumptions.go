package repository

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"bitbucket.org/mmdatafocus/tradelog_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormConsumptionRepository struct {
	db *gorm.DB
}

func (r *gormConsumptionRepository) Create(ctx context.Context, record *models.ConsumptionRecord) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(record).Error
}

func (r *gormConsumptionRepository) Update(ctx context.Context, record *models.ConsumptionRecord) error {
	result := r.db.WithContext(ctx).Model(&models.ConsumptionRecord{}).
		Where("owner_id = ? AND id = ?", record.OwnerId, record.ID).
		Updates(map[string]interface{}{
			"quantity_consumed": record.QuantityConsumed,
			"consumption_rate":  record.ConsumptionRate,
			"consumed_at":       record.ConsumedAt,
			"remarks":           record.Remarks,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *gormConsumptionRepository) SoftDelete(ctx context.Context, ownerId int, id int) (*models.ConsumptionRecord, error) {
	record, err := r.FindOne(ctx, ownerId, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&models.ConsumptionRecord{}).
		Where("owner_id = ? AND id = ?", ownerId, id).
		Update("deleted_at", now)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, models.ErrNotFound
	}
	record.DeletedAt = gorm.DeletedAt{Time: now, Valid: true}
	return record, nil
}

func (r *gormConsumptionRepository) FindOne(ctx context.Context, ownerId int, id int) (*models.ConsumptionRecord, error) {
	var record models.ConsumptionRecord
	err := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerId, id).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *gormConsumptionRepository) SumActiveByLot(ctx context.Context, lotId int) (decimal.Decimal, error) {
	var sum decimal.Decimal
	row := r.db.WithContext(ctx).Model(&models.ConsumptionRecord{}).
		Select("COALESCE(SUM(quantity_consumed), 0)").
		Where("lot_id = ?", lotId).
		Row()
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	// columns are decimal(20,8); sqlite sums them as REAL
	return sum.Round(8), nil
}

func (r *gormConsumptionRepository) ListByBatch(ctx context.Context, ownerId int, batchId int) ([]*models.ConsumptionRecord, error) {
	var records []*models.ConsumptionRecord
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND batch_ref = ?", ownerId, batchId).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *gormConsumptionRepository) Page(ctx context.Context, ownerId int, page models.PageRequest, filter models.ConsumptionFilter) (*models.Page[*models.ConsumptionRecord], error) {
	dbCtx := r.db.WithContext(ctx).Model(&models.ConsumptionRecord{}).Where("owner_id = ?", ownerId)
	if filter.BatchCode != "" {
		dbCtx = dbCtx.Where("batch_ref IN (?)",
			r.db.WithContext(ctx).Unscoped().Model(&models.BatchConsumptionAction{}).
				Select("id").
				Where("owner_id = ? AND batch_code = ?", ownerId, filter.BatchCode))
	}
	if filter.LotId > 0 {
		dbCtx = dbCtx.Where("lot_id = ?", filter.LotId)
	}
	dbCtx = dbCtx.Session(&gorm.Session{})

	var count int64
	if err := dbCtx.Count(&count).Error; err != nil {
		return nil, err
	}
	result := &models.Page[*models.ConsumptionRecord]{
		Items:      []*models.ConsumptionRecord{},
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
	if err := r.attachRelations(ctx, ownerId, result.Items); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *gormConsumptionRepository) ListActive(ctx context.Context, ownerId int) ([]*models.ConsumptionRecord, error) {
	var records []*models.ConsumptionRecord
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerId).Order("consumed_at ASC, id ASC").Find(&records).Error
	if err != nil {
		return nil, err
	}
	if err := r.attachRelations(ctx, ownerId, records); err != nil {
		return nil, err
	}
	return records, nil
}

// attachRelations loads lot snapshots and batches in two queries.
// Deleted lots and batches are still shown.
func (r *gormConsumptionRepository) attachRelations(ctx context.Context, ownerId int, records []*models.ConsumptionRecord) error {
	if len(records) == 0 {
		return nil
	}
	var lotIds, batchIds []int
	for _, record := range records {
		lotIds = append(lotIds, record.LotId)
		if record.BatchRef != nil {
			batchIds = append(batchIds, *record.BatchRef)
		}
	}

	var lots []*models.AcquisitionLot
	if err := r.db.WithContext(ctx).Unscoped().
		Where("owner_id = ? AND id IN ?", ownerId, utils.UniqueSlice(lotIds)).
		Find(&lots).Error; err != nil {
		return err
	}
	lotById := make(map[int]*models.AcquisitionLot, len(lots))
	for _, lot := range lots {
		lotById[lot.ID] = lot
	}

	batchById := make(map[int]*models.BatchConsumptionAction)
	if len(batchIds) > 0 {
		var batches []*models.BatchConsumptionAction
		if err := r.db.WithContext(ctx).Unscoped().
			Where("owner_id = ? AND id IN ?", ownerId, utils.UniqueSlice(batchIds)).
			Find(&batches).Error; err != nil {
			return err
		}
		for _, batch := range batches {
			batchById[batch.ID] = batch
		}
	}

	for _, record := range records {
		if lot, ok := lotById[record.LotId]; ok {
			record.Lot = lot.Snapshot()
		}
		if record.BatchRef != nil {
			record.Batch = batchById[*record.BatchRef]
		}
	}
	return nil
}
