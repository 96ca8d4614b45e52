package workflow

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/tradelog_backend/config"
	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"bitbucket.org/mmdatafocus/tradelog_backend/repository"
)

func (l *Ledger) CreateAcquisition(ctx context.Context, ownerId int, input *models.NewAcquisitionLot) (*models.AcquisitionLot, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	var lot *models.AcquisitionLot
	err := l.mutate(ctx, ownerId, "CreateAcquisition", func(ctx context.Context, tx repository.Tx) error {
		lot = input.Lot(ownerId)
		return tx.Lots().Create(ctx, lot)
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// UpdateAcquisition edits descriptive fields only; balances are untouched.
func (l *Ledger) UpdateAcquisition(ctx context.Context, ownerId int, id int, input *models.UpdateAcquisitionLot) (*models.AcquisitionLot, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	var lot *models.AcquisitionLot
	err := l.mutate(ctx, ownerId, "UpdateAcquisition", func(ctx context.Context, tx repository.Tx) error {
		locked, err := tx.Lots().LockActive(ctx, ownerId, []int{id})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return fmt.Errorf("lot %d: %w", id, models.ErrNotFound)
		}
		lot = locked[0]
		input.Apply(lot)
		return tx.Lots().Update(ctx, lot)
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// SoftDeleteAcquisition hides the lot from listings and allocation. Its
// balance is frozen at the last reconciled value.
func (l *Ledger) SoftDeleteAcquisition(ctx context.Context, ownerId int, id int) (*models.AcquisitionLot, error) {
	var lot *models.AcquisitionLot
	err := l.mutate(ctx, ownerId, "SoftDeleteAcquisition", func(ctx context.Context, tx repository.Tx) error {
		locked, err := tx.Lots().LockActive(ctx, ownerId, []int{id})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return fmt.Errorf("lot %d: %w", id, models.ErrNotFound)
		}
		lot, err = tx.Lots().SoftDelete(ctx, ownerId, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

func (l *Ledger) GetAcquisition(ctx context.Context, ownerId int, id int) (*models.AcquisitionLot, error) {
	var lot *models.AcquisitionLot
	err := l.view(ctx, ownerId, "GetAcquisition", func(ctx context.Context, tx repository.Tx) error {
		var err error
		lot, err = tx.Lots().FindOne(ctx, ownerId, id)
		return err
	})
	return lot, err
}

// SearchAcquisitions returns at most config.SearchLimit lots, newest first.
func (l *Ledger) SearchAcquisitions(ctx context.Context, ownerId int, search models.LotSearch) ([]*models.AcquisitionLot, error) {
	var lots []*models.AcquisitionLot
	err := l.view(ctx, ownerId, "SearchAcquisitions", func(ctx context.Context, tx repository.Tx) error {
		var err error
		lots, err = tx.Lots().Search(ctx, ownerId, search, config.SearchLimit)
		return err
	})
	return lots, err
}

func (l *Ledger) PageAcquisitions(ctx context.Context, ownerId int, page int, filter models.LotFilter) (*models.Page[*models.AcquisitionLot], error) {
	var result *models.Page[*models.AcquisitionLot]
	err := l.view(ctx, ownerId, "PageAcquisitions", func(ctx context.Context, tx repository.Tx) error {
		var err error
		result, err = tx.Lots().Page(ctx, ownerId, l.pageRequest(page), filter)
		return err
	})
	return result, err
}

func (l *Ledger) ListAcquisitions(ctx context.Context, ownerId int) ([]*models.AcquisitionLot, error) {
	var lots []*models.AcquisitionLot
	err := l.view(ctx, ownerId, "ListAcquisitions", func(ctx context.Context, tx repository.Tx) error {
		var err error
		lots, err = tx.Lots().ListActive(ctx, ownerId)
		return err
	})
	return lots, err
}
