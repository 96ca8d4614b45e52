package repository

import (
	"context"

	"gorm.io/gorm"
)

// GormStore runs units of work on MySQL. Row locks are taken with
// SELECT ... FOR UPDATE inside Transaction.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) View(ctx context.Context, fn func(tx Tx) error) error {
	return classifyError(fn(&gormTx{db: s.db.WithContext(ctx)}))
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
	return classifyError(err)
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) Lots() LotRepository {
	return &gormLotRepository{db: t.db}
}

func (t *gormTx) Consumptions() ConsumptionRepository {
	return &gormConsumptionRepository{db: t.db}
}

func (t *gormTx) Batches() BatchRepository {
	return &gormBatchRepository{db: t.db}
}

func (t *gormTx) Users() UserRepository {
	return &gormUserRepository{db: t.db}
}
