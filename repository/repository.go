// Package repository holds the transactional store the ledger runs on and
// its MySQL implementation.
package repository

import (
	"context"

	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"github.com/shopspring/decimal"
)

// Store opens units of work. Transaction commits when fn returns nil and
// rolls back every write otherwise.
type Store interface {
	View(ctx context.Context, fn func(tx Tx) error) error
	Transaction(ctx context.Context, fn func(tx Tx) error) error
}

type Tx interface {
	Lots() LotRepository
	Consumptions() ConsumptionRepository
	Batches() BatchRepository
	Users() UserRepository
}

// LotRepository never writes quantity_remaining except through SetRemaining
// and never writes quantity_acquired after Create.
type LotRepository interface {
	Create(ctx context.Context, lot *models.AcquisitionLot) error
	Update(ctx context.Context, lot *models.AcquisitionLot) error
	SoftDelete(ctx context.Context, ownerId int, id int) (*models.AcquisitionLot, error)
	FindOne(ctx context.Context, ownerId int, id int) (*models.AcquisitionLot, error)

	// LockActive takes an exclusive row lock on the owner's active lots among
	// ids, in ascending id order, and returns them in that order. Ids that are
	// missing, deleted or foreign are absent from the result.
	LockActive(ctx context.Context, ownerId int, ids []int) ([]*models.AcquisitionLot, error)
	SetRemaining(ctx context.Context, id int, remaining decimal.Decimal) error

	Search(ctx context.Context, ownerId int, search models.LotSearch, limit int) ([]*models.AcquisitionLot, error)
	Page(ctx context.Context, ownerId int, page models.PageRequest, filter models.LotFilter) (*models.Page[*models.AcquisitionLot], error)
	ListActive(ctx context.Context, ownerId int) ([]*models.AcquisitionLot, error)
	ActiveIds(ctx context.Context, ownerId int) ([]int, error)

	// OwnerOf resolves the owner of an active lot regardless of the caller.
	OwnerOf(ctx context.Context, id int) (int, bool, error)
}

type ConsumptionRepository interface {
	Create(ctx context.Context, record *models.ConsumptionRecord) error
	Update(ctx context.Context, record *models.ConsumptionRecord) error
	SoftDelete(ctx context.Context, ownerId int, id int) (*models.ConsumptionRecord, error)
	FindOne(ctx context.Context, ownerId int, id int) (*models.ConsumptionRecord, error)

	SumActiveByLot(ctx context.Context, lotId int) (decimal.Decimal, error)
	ListByBatch(ctx context.Context, ownerId int, batchId int) ([]*models.ConsumptionRecord, error)

	// Page joins every record with a snapshot of its lot (deleted lots
	// included) and its batch when present. Newest first.
	Page(ctx context.Context, ownerId int, page models.PageRequest, filter models.ConsumptionFilter) (*models.Page[*models.ConsumptionRecord], error)
	ListActive(ctx context.Context, ownerId int) ([]*models.ConsumptionRecord, error)
}

type BatchRepository interface {
	Create(ctx context.Context, batch *models.BatchConsumptionAction) error
	FindByCode(ctx context.Context, ownerId int, code string) (*models.BatchConsumptionAction, error)
	Page(ctx context.Context, ownerId int, page models.PageRequest) (*models.Page[*models.BatchConsumptionAction], error)
	SoftDelete(ctx context.Context, ownerId int, id int) (*models.BatchConsumptionAction, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindById(ctx context.Context, id int) (*models.User, error)
}
