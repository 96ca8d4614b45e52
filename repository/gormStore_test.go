package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/tradelog_backend/config"
	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"bitbucket.org/mmdatafocus/tradelog_backend/repository"
	"bitbucket.org/mmdatafocus/tradelog_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var acquiredAt = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func newSqliteStore(t *testing.T) *repository.GormStore {
	t.Helper()
	db, err := config.OpenSqlite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, models.MigrateTable(db))
	return repository.NewGormStore(db)
}

func lotOf(ownerId int, qty string, remarks string) *models.AcquisitionLot {
	q := decimal.RequireFromString(qty)
	return &models.AcquisitionLot{
		OwnerId:           ownerId,
		ItemType:          models.ItemTypeUSDT,
		QuantityAcquired:  q,
		QuantityRemaining: q,
		AcquisitionRate:   decimal.NewFromInt(3500),
		AcquiredAt:        acquiredAt,
		Remarks:           remarks,
	}
}

func recordOf(ownerId int, lotId int, qty string) *models.ConsumptionRecord {
	return &models.ConsumptionRecord{
		OwnerId:          ownerId,
		LotId:            lotId,
		QuantityConsumed: decimal.RequireFromString(qty),
		ConsumedAt:       acquiredAt,
	}
}

func createLots(t *testing.T, store *repository.GormStore, lots ...*models.AcquisitionLot) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Transaction(ctx, func(tx repository.Tx) error {
		for _, lot := range lots {
			if err := tx.Lots().Create(ctx, lot); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestTransactionRollsBackOnError(t *testing.T) {
	store := newSqliteStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Transaction(ctx, func(tx repository.Tx) error {
		require.NoError(t, tx.Lots().Create(ctx, lotOf(1, "10", "")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, store.View(ctx, func(tx repository.Tx) error {
		ids, err := tx.Lots().ActiveIds(ctx, 1)
		assert.Empty(t, ids)
		return err
	}))
}

func TestTransactionRollsBackOnPanic(t *testing.T) {
	store := newSqliteStore(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = store.Transaction(ctx, func(tx repository.Tx) error {
			_ = tx.Lots().Create(ctx, lotOf(1, "10", ""))
			panic("kaboom")
		})
	})
	require.NoError(t, store.View(ctx, func(tx repository.Tx) error {
		ids, err := tx.Lots().ActiveIds(ctx, 1)
		assert.Empty(t, ids)
		return err
	}))
}

func TestTransactionWithCanceledContext(t *testing.T) {
	store := newSqliteStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := store.Transaction(ctx, func(tx repository.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestDuplicateBatchCodeIsConflict(t *testing.T) {
	store := newSqliteStore(t)
	ctx := context.Background()
	create := func(ownerId int) error {
		return store.Transaction(ctx, func(tx repository.Tx) error {
			return tx.Batches().Create(ctx, &models.BatchConsumptionAction{
				OwnerId:           ownerId,
				BatchCode:         "BS-00000001",
				RequestedQuantity: decimal.NewFromInt(1),
				ExecutedAt:        acquiredAt,
			})
		})
	}
	require.NoError(t, create(1))
	assert.ErrorIs(t, create(2), models.ErrConcurrencyConflict)
}

func TestDuplicateUsernameIsValidationError(t *testing.T) {
	store := newSqliteStore(t)
	ctx := context.Background()
	create := func(publicId string) error {
		return store.Transaction(ctx, func(tx repository.Tx) error {
			return tx.Users().Create(ctx, &models.User{PublicId: publicId, Username: "trader01", Password: "x"})
		})
	}
	require.NoError(t, create("first"))
	err := create("second")
	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "user_name", validationErr.Field)

	require.NoError(t, store.View(ctx, func(tx repository.Tx) error {
		user, err := tx.Users().FindByUsername(ctx, "trader01")
		require.NoError(t, err)
		assert.Equal(t, "first", user.PublicId)
		assert.True(t, user.Active())

		_, err = tx.Users().FindById(ctx, user.ID+1)
		assert.ErrorIs(t, err, models.ErrNotFound)
		return nil
	}))
}

func TestLotScopingAndSoftDelete(t *testing.T) {
	store := newSqliteStore(t)
	ctx := context.Background()
	lot := lotOf(1, "10", "")
	createLots(t, store, lot)
	assert.Equal(t, models.LotStatusAvailable, lot.Status)

	require.NoError(t, store.View(ctx, func(tx repository.Tx) error {
		_, err := tx.Lots().FindOne(ctx, 2, lot.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
		owner, ok, err := tx.Lots().OwnerOf(utils.SetOwnerIdInContext(ctx, 2), lot.ID)
		assert.True(t, ok)
		assert.Equal(t, 1, owner)
		return err
	}))

	require.NoError(t, store.Transaction(ctx, func(tx repository.Tx) error {
		assert.ErrorIs(t, tx.Lots().Update(ctx, &models.AcquisitionLot{ID: lot.ID, OwnerId: 2}), models.ErrNotFound)
		_, err := tx.Lots().SoftDelete(ctx, 2, lot.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)

		deleted, err := tx.Lots().SoftDelete(ctx, 1, lot.ID)
		require.NoError(t, err)
		assert.True(t, deleted.IsDeleted())
		assert.True(t, deleted.QuantityRemaining.Equal(decimal.NewFromInt(10)))
		return nil
	}))
	require.NoError(t, store.View(ctx, func(tx repository.Tx) error {
		_, err := tx.Lots().FindOne(ctx, 1, lot.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
		_, ok, err := tx.Lots().OwnerOf(ctx, lot.ID)
		assert.False(t, ok)
		return err
	}))
}

func TestLockActiveSortsAndSkipsForeign(t *testing.T) {
	store := newSqliteStore(t)
	ctx := context.Background()
	createLots(t, store, lotOf(1, "5", ""), lotOf(2, "5", ""), lotOf(1, "5", ""))

	require.NoError(t, store.Transaction(ctx, func(tx repository.Tx) error {
		lots, err := tx.Lots().LockActive(ctx, 1, []int{3, 2, 1, 99})
		require.NoError(t, err)
		require.Len(t, lots, 2)
		assert.Equal(t, 1, lots[0].ID)
		assert.Equal(t, 3, lots[1].ID)

		none, err := tx.Lots().LockActive(ctx, 1, nil)
		assert.Empty(t, none)
		return err
	}))
}

func TestLotPageCountsAndOffsets(t *testing.T) {
	store := newSqliteStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		createLots(t, store, lotOf(1, "1", ""))
	}
	createLots(t, store, lotOf(2, "1", ""))
	require.NoError(t, store.Transaction(ctx, func(tx repository.Tx) error {
		return tx.Lots().SetRemaining(ctx, 5, decimal.Zero)
	}))

	require.NoError(t, store.View(ctx, func(tx repository.Tx) error {
		page, err := tx.Lots().Page(ctx, 1, models.PageRequest{Page: 1, Size: 2}, models.LotFilter{IncludeDepleted: true})
		require.NoError(t, err)
		assert.Equal(t, 3, page.TotalPages)
		require.Len(t, page.Items, 2)
		assert.Equal(t, 5, page.Items[0].ID)
		assert.Equal(t, models.LotStatusDepleted, page.Items[0].Status)
		assert.Equal(t, 4, page.Items[1].ID)

		last, err := tx.Lots().Page(ctx, 1, models.PageRequest{Page: 3, Size: 2}, models.LotFilter{IncludeDepleted: true})
		require.NoError(t, err)
		require.Len(t, last.Items, 1)
		assert.Equal(t, 1, last.Items[0].ID)

		available, err := tx.Lots().Page(ctx, 1, models.PageRequest{Page: 1, Size: 2}, models.LotFilter{})
		require.NoError(t, err)
		assert.Equal(t, 2, available.TotalPages)
		assert.Equal(t, 4, available.Items[0].ID)

		empty, err := tx.Lots().Page(ctx, 3, models.PageRequest{Page: 1, Size: 2}, models.LotFilter{})
		require.NoError(t, err)
		assert.NotNil(t, empty.Items)
		assert.Zero(t, empty.TotalPages)
		return nil
	}))
}

func TestLotSearchEscapesWildcards(t *testing.T) {
	store := newSqliteStore(t)
	ctx := context.Background()
	percent := lotOf(1, "10", "50% off promo")
	plain := lotOf(1, "10", "500 off promo")
	underscore := lotOf(1, "10", "desk_a")
	other := lotOf(1, "10", "deskxa")
	bang := lotOf(1, "10", "wow! cheap")
	createLots(t, store, percent, plain, underscore, other, bang)

	search := func(q string) []int {
		var ids []int
		require.NoError(t, store.View(ctx, func(tx repository.Tx) error {
			lots, err := tx.Lots().Search(ctx, 1, models.LotSearch{Query: q}, 10)
			for _, lot := range lots {
				ids = append(ids, lot.ID)
			}
			return err
		}))
		return ids
	}

	assert.Equal(t, []int{percent.ID}, search("50%"))
	assert.Equal(t, []int{underscore.ID}, search("DESK_"))
	assert.Equal(t, []int{bang.ID}, search("wow!"))
	assert.ElementsMatch(t, []int{percent.ID, plain.ID}, search("promo"))
}

func TestLotSearchByRateAndBalance(t *testing.T) {
	store := newSqliteStore(t)
	ctx := context.Background()
	cheap := lotOf(1, "3", "Binance P2P")
	dear := lotOf(1, "3", "cash")
	dear.AcquisitionRate = decimal.NewFromInt(3900)
	createLots(t, store, cheap, dear)
	require.NoError(t, store.Transaction(ctx, func(tx repository.Tx) error {
		return tx.Lots().SetRemaining(ctx, cheap.ID, decimal.Zero)
	}))

	require.NoError(t, store.View(ctx, func(tx repository.Tx) error {
		byRate, err := tx.Lots().Search(ctx, 1, models.LotSearch{Query: "3,600"}, 10)
		require.NoError(t, err)
		require.Len(t, byRate, 1)
		assert.Equal(t, dear.ID, byRate[0].ID)

		hidden, err := tx.Lots().Search(ctx, 1, models.LotSearch{Query: "p2p"}, 10)
		require.NoError(t, err)
		assert.Empty(t, hidden)

		shown, err := tx.Lots().Search(ctx, 1, models.LotSearch{Query: "p2p", IncludeDepleted: true}, 10)
		require.NoError(t, err)
		require.Len(t, shown, 1)
		assert.Equal(t, models.LotStatusDepleted, shown[0].Status)

		limited, err := tx.Lots().Search(ctx, 1, models.LotSearch{IncludeDepleted: true}, 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
		return nil
	}))
}

func TestSumActiveByLotIgnoresDeletedRecords(t *testing.T) {
	store := newSqliteStore(t)
	ctx := context.Background()
	lot := lotOf(1, "10", "")
	createLots(t, store, lot)
	require.NoError(t, store.Transaction(ctx, func(tx repository.Tx) error {
		var last *models.ConsumptionRecord
		for _, qty := range []string{"0.1", "0.2", "3"} {
			last = recordOf(1, lot.ID, qty)
			if err := tx.Consumptions().Create(ctx, last); err != nil {
				return err
			}
		}
		_, err := tx.Consumptions().SoftDelete(ctx, 1, last.ID)
		return err
	}))
	require.NoError(t, store.View(ctx, func(tx repository.Tx) error {
		sum, err := tx.Consumptions().SumActiveByLot(ctx, lot.ID)
		assert.True(t, sum.Equal(decimal.RequireFromString("0.3")), sum.String())

		none, err2 := tx.Consumptions().SumActiveByLot(ctx, lot.ID+1)
		assert.True(t, none.IsZero())
		return errors.Join(err, err2)
	}))
}

func TestConsumptionPageAttachesLotsAndBatches(t *testing.T) {
	store := newSqliteStore(t)
	ctx := context.Background()
	lotA := lotOf(1, "10", "a")
	lotB := lotOf(1, "10", "b")
	createLots(t, store, lotA, lotB)

	batch := &models.BatchConsumptionAction{
		OwnerId:           1,
		BatchCode:         "BS-0000000A",
		RequestedQuantity: decimal.NewFromInt(4),
		ExecutedAt:        acquiredAt,
	}
	require.NoError(t, store.Transaction(ctx, func(tx repository.Tx) error {
		if err := tx.Batches().Create(ctx, batch); err != nil {
			return err
		}
		single := recordOf(1, lotA.ID, "1")
		if err := tx.Consumptions().Create(ctx, single); err != nil {
			return err
		}
		for _, lotId := range []int{lotA.ID, lotB.ID} {
			member := recordOf(1, lotId, "2")
			member.BatchRef = &batch.ID
			if err := tx.Consumptions().Create(ctx, member); err != nil {
				return err
			}
		}
		_, err := tx.Lots().SoftDelete(ctx, 1, lotB.ID)
		return err
	}))

	require.NoError(t, store.View(ctx, func(tx repository.Tx) error {
		all, err := tx.Consumptions().Page(ctx, 1, models.PageRequest{Page: 1, Size: 10}, models.ConsumptionFilter{})
		require.NoError(t, err)
		require.Len(t, all.Items, 3)
		newest := all.Items[0]
		assert.Equal(t, lotB.ID, newest.LotId)
		require.NotNil(t, newest.Lot)
		assert.True(t, newest.Lot.Deleted)
		require.NotNil(t, newest.Batch)
		assert.Equal(t, "BS-0000000A", newest.Batch.BatchCode)
		assert.Nil(t, all.Items[2].Batch)

		byBatch, err := tx.Consumptions().Page(ctx, 1, models.PageRequest{Page: 1, Size: 10}, models.ConsumptionFilter{BatchCode: "BS-0000000A"})
		require.NoError(t, err)
		assert.Len(t, byBatch.Items, 2)

		byLot, err := tx.Consumptions().Page(ctx, 1, models.PageRequest{Page: 1, Size: 1}, models.ConsumptionFilter{LotId: lotA.ID})
		require.NoError(t, err)
		assert.Equal(t, 2, byLot.TotalPages)
		assert.Len(t, byLot.Items, 1)

		foreign, err := tx.Consumptions().Page(ctx, 2, models.PageRequest{Page: 1, Size: 10}, models.ConsumptionFilter{BatchCode: "BS-0000000A"})
		require.NoError(t, err)
		assert.Empty(t, foreign.Items)

		members, err := tx.Consumptions().ListByBatch(ctx, 1, batch.ID)
		require.NoError(t, err)
		assert.Len(t, members, 2)
		return nil
	}))
}

func TestBatchSoftDeleteReturnsVoidedRow(t *testing.T) {
	store := newSqliteStore(t)
	ctx := context.Background()
	batch := &models.BatchConsumptionAction{
		OwnerId:           1,
		BatchCode:         "BS-0000000B",
		RequestedQuantity: decimal.NewFromInt(1),
		ExecutedAt:        acquiredAt,
	}
	require.NoError(t, store.Transaction(ctx, func(tx repository.Tx) error {
		return tx.Batches().Create(ctx, batch)
	}))

	require.NoError(t, store.Transaction(ctx, func(tx repository.Tx) error {
		_, err := tx.Batches().SoftDelete(ctx, 2, batch.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)

		voided, err := tx.Batches().SoftDelete(ctx, 1, batch.ID)
		require.NoError(t, err)
		assert.True(t, voided.IsDeleted())
		assert.Equal(t, "BS-0000000B", voided.BatchCode)
		return nil
	}))

	require.NoError(t, store.View(ctx, func(tx repository.Tx) error {
		_, err := tx.Batches().FindByCode(ctx, 1, "BS-0000000B")
		assert.ErrorIs(t, err, models.ErrNotFound)
		page, err := tx.Batches().Page(ctx, 1, models.PageRequest{Page: 1, Size: 10})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		return nil
	}))
	require.NoError(t, store.Transaction(ctx, func(tx repository.Tx) error {
		_, err := tx.Batches().SoftDelete(ctx, 1, batch.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
		return nil
	}))
}

func TestOwnerScopeFromContext(t *testing.T) {
	store := newSqliteStore(t)
	ctx := context.Background()
	lot := lotOf(1, "10", "")
	createLots(t, store, lot)
	require.NoError(t, store.Transaction(ctx, func(tx repository.Tx) error {
		return tx.Consumptions().Create(ctx, recordOf(1, lot.ID, "4"))
	}))

	sum := func(ctx context.Context) decimal.Decimal {
		var total decimal.Decimal
		require.NoError(t, store.View(ctx, func(tx repository.Tx) error {
			var err error
			total, err = tx.Consumptions().SumActiveByLot(ctx, lot.ID)
			return err
		}))
		return total
	}
	assert.True(t, sum(utils.SetOwnerIdInContext(ctx, 1)).Equal(decimal.NewFromInt(4)))
	assert.True(t, sum(utils.SetOwnerIdInContext(ctx, 2)).IsZero())

	bypass := utils.SetSkipOwnerScopeInContext(utils.SetOwnerIdInContext(ctx, 2), true)
	assert.True(t, sum(bypass).Equal(decimal.NewFromInt(4)))

	err := store.Transaction(utils.SetOwnerIdInContext(ctx, 2), func(tx repository.Tx) error {
		return tx.Lots().SetRemaining(utils.SetOwnerIdInContext(ctx, 2), lot.ID, decimal.Zero)
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}
