package workflow

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"bitbucket.org/mmdatafocus/tradelog_backend/repository"
	"github.com/sirupsen/logrus"
)

// reconcileLocked recomputes quantity_remaining of one lot from its active
// consumption records inside tx. The lot row is locked first; a missing or
// soft-deleted lot fails with models.ErrNotFound.
//
// The result is not clamped. A negative balance is stored as is and logged
// so over-consumption stays visible.
func (l *Ledger) reconcileLocked(ctx context.Context, tx repository.Tx, ownerId int, lotId int) (*models.AcquisitionLot, error) {
	lots, err := tx.Lots().LockActive(ctx, ownerId, []int{lotId})
	if err != nil {
		return nil, err
	}
	if len(lots) == 0 {
		return nil, fmt.Errorf("lot %d: %w", lotId, models.ErrNotFound)
	}
	lot := lots[0]

	consumed, err := tx.Consumptions().SumActiveByLot(ctx, lot.ID)
	if err != nil {
		return nil, err
	}
	remaining := lot.QuantityAcquired.Sub(consumed)
	if !remaining.Equal(lot.QuantityRemaining) {
		if err := tx.Lots().SetRemaining(ctx, lot.ID, remaining); err != nil {
			return nil, err
		}
		lot.QuantityRemaining = remaining
	}
	lot.RefreshStatus()

	if lot.Status == models.LotStatusOversold {
		l.logger.WithFields(logrus.Fields{
			"module":             moduleName,
			"owner_id":           ownerId,
			"lot_id":             lot.ID,
			"quantity_acquired":  lot.QuantityAcquired.String(),
			"quantity_consumed":  consumed.String(),
			"quantity_remaining": remaining.String(),
		}).Warn("lot is oversold")
	}
	return lot, nil
}

// ReconcileLot repairs one lot in its own transaction. Running it twice
// without intervening mutations leaves the balance unchanged.
func (l *Ledger) ReconcileLot(ctx context.Context, ownerId int, lotId int) (*models.AcquisitionLot, error) {
	var lot *models.AcquisitionLot
	err := l.mutate(ctx, ownerId, "ReconcileLot", func(ctx context.Context, tx repository.Tx) error {
		var err error
		lot, err = l.reconcileLocked(ctx, tx, ownerId, lotId)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

type ReconcileSummary struct {
	OwnerId     int   `json:"owner_id"`
	Lots        int   `json:"lots"`
	Changed     int   `json:"changed"`
	OversoldIds []int `json:"oversold_ids"`
}

// ReconcileOwner reconciles every active lot of the owner, one transaction
// per lot. Lots deleted while the backfill runs are skipped.
func (l *Ledger) ReconcileOwner(ctx context.Context, ownerId int) (*ReconcileSummary, error) {
	var ids []int
	err := l.view(ctx, ownerId, "ReconcileOwner", func(ctx context.Context, tx repository.Tx) error {
		var err error
		ids, err = tx.Lots().ActiveIds(ctx, ownerId)
		return err
	})
	if err != nil {
		return nil, err
	}

	summary := &ReconcileSummary{OwnerId: ownerId, OversoldIds: []int{}}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		var before, after *models.AcquisitionLot
		err := l.mutate(ctx, ownerId, "ReconcileOwner.lot", func(ctx context.Context, tx repository.Tx) error {
			var err error
			if before, err = tx.Lots().FindOne(ctx, ownerId, id); err != nil {
				return err
			}
			after, err = l.reconcileLocked(ctx, tx, ownerId, id)
			return err
		})
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return summary, err
		}
		summary.Lots++
		if !before.QuantityRemaining.Equal(after.QuantityRemaining) {
			summary.Changed++
		}
		if after.Status == models.LotStatusOversold {
			summary.OversoldIds = append(summary.OversoldIds, after.ID)
		}
	}
	return summary, nil
}
