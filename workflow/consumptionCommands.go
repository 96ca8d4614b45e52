package workflow

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"bitbucket.org/mmdatafocus/tradelog_backend/repository"
)

// Apply validates cmd and runs it in one transaction: lock the lot, write
// the record, reconcile the lot. The returned record carries the lot snapshot
// after reconciliation.
func (l *Ledger) Apply(ctx context.Context, ownerId int, cmd models.ConsumptionCommand) (*models.ConsumptionRecord, error) {
	if cmd == nil {
		return nil, models.NewValidationError("command", "is required")
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var result *models.ConsumptionRecord
	err := l.mutate(ctx, ownerId, "Apply."+string(cmd.Action()), func(ctx context.Context, tx repository.Tx) error {
		var err error
		switch c := cmd.(type) {
		case *models.CreateConsumptionCommand:
			result, err = l.createConsumption(ctx, tx, ownerId, c)
		case *models.UpdateConsumptionCommand:
			result, err = l.updateConsumption(ctx, tx, ownerId, c)
		case *models.DeleteConsumptionCommand:
			result, err = l.deleteConsumption(ctx, tx, ownerId, c)
		default:
			err = models.NewValidationError("command", fmt.Sprintf("unsupported command %T", cmd))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (l *Ledger) UpdateConsumption(ctx context.Context, ownerId int, input *models.UpdateConsumptionCommand) (*models.ConsumptionRecord, error) {
	return l.Apply(ctx, ownerId, input)
}

func (l *Ledger) SoftDeleteConsumption(ctx context.Context, ownerId int, id int) (*models.ConsumptionRecord, error) {
	return l.Apply(ctx, ownerId, &models.DeleteConsumptionCommand{Id: id})
}

func (l *Ledger) createConsumption(ctx context.Context, tx repository.Tx, ownerId int, c *models.CreateConsumptionCommand) (*models.ConsumptionRecord, error) {
	locked, err := tx.Lots().LockActive(ctx, ownerId, []int{c.LotId})
	if err != nil {
		return nil, err
	}
	if len(locked) == 0 {
		return nil, l.missingLotError(ctx, tx, ownerId, c.LotId)
	}

	record := c.Record(ownerId)
	if err := tx.Consumptions().Create(ctx, record); err != nil {
		return nil, err
	}
	lot, err := l.reconcileLocked(ctx, tx, ownerId, record.LotId)
	if err != nil {
		return nil, err
	}
	record.Lot = lot.Snapshot()
	return record, nil
}

func (l *Ledger) updateConsumption(ctx context.Context, tx repository.Tx, ownerId int, c *models.UpdateConsumptionCommand) (*models.ConsumptionRecord, error) {
	record, err := l.lockRecordLot(ctx, tx, ownerId, c.Id)
	if err != nil {
		return nil, err
	}
	if record.IsBatchMember() && !record.QuantityConsumed.Equal(c.Quantity) {
		return nil, models.NewValidationError("quantity", "cannot change the quantity of a batch record; void the batch instead")
	}

	c.Apply(record)
	if err := tx.Consumptions().Update(ctx, record); err != nil {
		return nil, err
	}
	lot, err := l.reconcileLocked(ctx, tx, ownerId, record.LotId)
	if err != nil {
		return nil, err
	}
	record.Lot = lot.Snapshot()
	return record, nil
}

func (l *Ledger) deleteConsumption(ctx context.Context, tx repository.Tx, ownerId int, c *models.DeleteConsumptionCommand) (*models.ConsumptionRecord, error) {
	record, err := l.lockRecordLot(ctx, tx, ownerId, c.Id)
	if err != nil {
		return nil, err
	}
	if record.IsBatchMember() {
		return nil, models.NewValidationError("id", "cannot delete a single batch record; void the batch instead")
	}

	deleted, err := tx.Consumptions().SoftDelete(ctx, ownerId, record.ID)
	if err != nil {
		return nil, err
	}
	lot, err := l.reconcileLocked(ctx, tx, ownerId, deleted.LotId)
	if err != nil {
		return nil, err
	}
	deleted.Lot = lot.Snapshot()
	return deleted, nil
}

// lockRecordLot locks the lot a record points at and returns the record as
// read after the lock.
func (l *Ledger) lockRecordLot(ctx context.Context, tx repository.Tx, ownerId int, recordId int) (*models.ConsumptionRecord, error) {
	record, err := tx.Consumptions().FindOne(ctx, ownerId, recordId)
	if err != nil {
		return nil, err
	}
	locked, err := tx.Lots().LockActive(ctx, ownerId, []int{record.LotId})
	if err != nil {
		return nil, err
	}
	if len(locked) == 0 {
		return nil, fmt.Errorf("lot %d: %w", record.LotId, models.ErrNotFound)
	}
	return tx.Consumptions().FindOne(ctx, ownerId, recordId)
}

// missingLotError tells a foreign lot apart from a missing one.
func (l *Ledger) missingLotError(ctx context.Context, tx repository.Tx, ownerId int, lotId int) error {
	actualOwner, exists, err := tx.Lots().OwnerOf(ctx, lotId)
	if err != nil {
		return err
	}
	if exists && actualOwner != ownerId {
		return &models.OwnershipViolationError{Resource: "lot", Id: lotId, OwnerId: ownerId}
	}
	return fmt.Errorf("lot %d: %w", lotId, models.ErrNotFound)
}

func (l *Ledger) GetConsumption(ctx context.Context, ownerId int, id int) (*models.ConsumptionRecord, error) {
	var record *models.ConsumptionRecord
	err := l.view(ctx, ownerId, "GetConsumption", func(ctx context.Context, tx repository.Tx) error {
		var err error
		record, err = tx.Consumptions().FindOne(ctx, ownerId, id)
		return err
	})
	return record, err
}

func (l *Ledger) PageConsumptions(ctx context.Context, ownerId int, page int, filter models.ConsumptionFilter) (*models.Page[*models.ConsumptionRecord], error) {
	var result *models.Page[*models.ConsumptionRecord]
	err := l.view(ctx, ownerId, "PageConsumptions", func(ctx context.Context, tx repository.Tx) error {
		var err error
		result, err = tx.Consumptions().Page(ctx, ownerId, l.pageRequest(page), filter.Normalize())
		return err
	})
	return result, err
}

func (l *Ledger) ListConsumptions(ctx context.Context, ownerId int) ([]*models.ConsumptionRecord, error) {
	var records []*models.ConsumptionRecord
	err := l.view(ctx, ownerId, "ListConsumptions", func(ctx context.Context, tx repository.Tx) error {
		var err error
		records, err = tx.Consumptions().ListActive(ctx, ownerId)
		return err
	})
	return records, err
}
