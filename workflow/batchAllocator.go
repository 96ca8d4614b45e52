package workflow

import (
	"context"
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"bitbucket.org/mmdatafocus/tradelog_backend/repository"
	"bitbucket.org/mmdatafocus/tradelog_backend/utils"
	"github.com/shopspring/decimal"
)

type allocationDraw struct {
	Lot      *models.AcquisitionLot
	Quantity decimal.Decimal
}

// planAllocation draws requested from lots in the given order. Available is
// the plain sum of the balances, so an oversold lot lowers it. Lots with a
// non-positive balance get no draw.
func planAllocation(lots []*models.AcquisitionLot, requested decimal.Decimal) ([]allocationDraw, error) {
	available := decimal.Zero
	for _, lot := range lots {
		available = available.Add(lot.QuantityRemaining)
	}
	if available.LessThan(requested) {
		return nil, &models.InsufficientBalanceError{Available: available, Requested: requested}
	}

	draws := make([]allocationDraw, 0, len(lots))
	left := requested
	for _, lot := range lots {
		if left.Sign() <= 0 {
			break
		}
		if lot.QuantityRemaining.Sign() <= 0 {
			continue
		}
		draw := decimal.Min(lot.QuantityRemaining, left)
		draws = append(draws, allocationDraw{Lot: lot, Quantity: draw})
		left = left.Sub(draw)
	}
	return draws, nil
}

// AllocateBatchConsumption satisfies one consumption request from several
// lots atomically. Either every record and the batch action are written and
// every touched lot is reconciled, or nothing is written.
func (l *Ledger) AllocateBatchConsumption(ctx context.Context, ownerId int, input *models.BatchAllocationRequest) (*models.BatchAllocation, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var allocation *models.BatchAllocation
	err := l.mutate(ctx, ownerId, "AllocateBatchConsumption", func(ctx context.Context, tx repository.Tx) error {
		locked, err := tx.Lots().LockActive(ctx, ownerId, input.LotIds)
		if err != nil {
			return err
		}
		byId := make(map[int]*models.AcquisitionLot, len(locked))
		for _, lot := range locked {
			byId[lot.ID] = lot
		}
		ordered := make([]*models.AcquisitionLot, 0, len(input.LotIds))
		for _, id := range input.LotIds {
			lot, ok := byId[id]
			if !ok {
				return fmt.Errorf("lot %d: %w", id, models.ErrNotFound)
			}
			ordered = append(ordered, lot)
		}

		draws, err := planAllocation(ordered, input.Quantity)
		if err != nil {
			return err
		}

		batch := &models.BatchConsumptionAction{
			OwnerId:           ownerId,
			BatchCode:         l.newBatchCode(),
			RequestedQuantity: input.Quantity,
			Rate:              input.Rate,
			ExecutedAt:        input.ConsumedAt,
			Remarks:           input.Remarks,
		}
		if err := tx.Batches().Create(ctx, batch); err != nil {
			return err
		}

		records := make([]*models.ConsumptionRecord, 0, len(draws))
		for _, draw := range draws {
			batchId := batch.ID
			record := &models.ConsumptionRecord{
				OwnerId:          ownerId,
				LotId:            draw.Lot.ID,
				QuantityConsumed: draw.Quantity,
				ConsumptionRate:  input.Rate,
				ConsumedAt:       input.ConsumedAt,
				Remarks:          input.Remarks,
				BatchRef:         &batchId,
			}
			if err := tx.Consumptions().Create(ctx, record); err != nil {
				return err
			}
			records = append(records, record)
		}

		for _, record := range records {
			lot, err := l.reconcileLocked(ctx, tx, ownerId, record.LotId)
			if err != nil {
				return err
			}
			record.Lot = lot.Snapshot()
			record.Batch = batch
		}

		allocation = &models.BatchAllocation{Batch: batch, Records: records}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return allocation, nil
}

func (l *Ledger) PageBatchActions(ctx context.Context, ownerId int, page int) (*models.Page[*models.BatchConsumptionAction], error) {
	var result *models.Page[*models.BatchConsumptionAction]
	err := l.view(ctx, ownerId, "PageBatchActions", func(ctx context.Context, tx repository.Tx) error {
		var err error
		result, err = tx.Batches().Page(ctx, ownerId, l.pageRequest(page))
		return err
	})
	return result, err
}

// SoftDeleteBatch voids a batch and all of its records, then reconciles
// every lot the batch drew from.
func (l *Ledger) SoftDeleteBatch(ctx context.Context, ownerId int, batchCode string) (*models.BatchConsumptionAction, error) {
	code := strings.ToUpper(strings.TrimSpace(batchCode))
	if code == "" {
		return nil, models.NewValidationError("batch_code", "is required")
	}

	var voided *models.BatchConsumptionAction
	err := l.mutate(ctx, ownerId, "SoftDeleteBatch", func(ctx context.Context, tx repository.Tx) error {
		batch, err := tx.Batches().FindByCode(ctx, ownerId, code)
		if err != nil {
			return err
		}
		records, err := tx.Consumptions().ListByBatch(ctx, ownerId, batch.ID)
		if err != nil {
			return err
		}

		lotIds := make([]int, 0, len(records))
		for _, record := range records {
			lotIds = append(lotIds, record.LotId)
		}
		lotIds = utils.UniqueSlice(lotIds)
		locked, err := tx.Lots().LockActive(ctx, ownerId, lotIds)
		if err != nil {
			return err
		}

		// re-read under the lot locks
		if batch, err = tx.Batches().FindByCode(ctx, ownerId, code); err != nil {
			return err
		}
		if records, err = tx.Consumptions().ListByBatch(ctx, ownerId, batch.ID); err != nil {
			return err
		}

		for i, record := range records {
			deleted, err := tx.Consumptions().SoftDelete(ctx, ownerId, record.ID)
			if err != nil {
				return err
			}
			records[i] = deleted
		}
		deleted, err := tx.Batches().SoftDelete(ctx, ownerId, batch.ID)
		if err != nil {
			return err
		}
		// lots deleted since the allocation keep their frozen balance
		for _, lot := range locked {
			if _, err := l.reconcileLocked(ctx, tx, ownerId, lot.ID); err != nil {
				return err
			}
		}

		deleted.Records = records
		voided = deleted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return voided, nil
}
