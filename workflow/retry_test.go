package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"bitbucket.org/mmdatafocus/tradelog_backend/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// conflictingStore fails the first `failures` transactions with a
// concurrency conflict, the way MySQL reports a deadlock victim.
type conflictingStore struct {
	*repository.GormStore
	failures int
	calls    int
}

func (s *conflictingStore) Transaction(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.calls++
	if s.failures > 0 {
		s.failures--
		return fmt.Errorf("Error 1213: Deadlock found: %w", models.ErrConcurrencyConflict)
	}
	return s.GormStore.Transaction(ctx, fn)
}

func TestMutationsRetryConcurrencyConflicts(t *testing.T) {
	store := &conflictingStore{GormStore: newTestStore(t)}
	l := NewLedger(store, quietLogger(), testSettings())
	var waits []time.Duration
	l.settings.RetryBackoff = 10 * time.Millisecond
	l.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	lot := addLot(t, l, ownerA, "10")
	store.calls = 0

	store.failures = 2
	consume(t, l, ownerA, lot.ID, "1")
	assert.Equal(t, 3, store.calls)
	assert.Equal(t, []time.Duration{20 * time.Millisecond, 40 * time.Millisecond}, waits)

	store.calls = 0
	store.failures = 5
	_, err := l.Apply(context.Background(), ownerA, &models.CreateConsumptionCommand{
		LotId: lot.ID, Quantity: dec("1"), Rate: dec("1"), ConsumedAt: testDay,
	})
	assert.ErrorIs(t, err, models.ErrConcurrencyConflict)
	assert.Equal(t, 3, store.calls)
	assertDecimal(t, "9", remaining(t, l, ownerA, lot.ID))
}

func TestRetryStopsWhenContextIsCancelled(t *testing.T) {
	store := &conflictingStore{GormStore: newTestStore(t), failures: 10}
	l := NewLedger(store, quietLogger(), testSettings())
	l.settings.RetryBackoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	l.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepContext(ctx, d)
	}
	_, err := l.CreateAcquisition(ctx, ownerA, &models.NewAcquisitionLot{
		Quantity: dec("1"), Rate: dec("1"), AcquiredAt: testDay,
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, store.calls)
}

func TestNonConflictErrorsAreNotRetried(t *testing.T) {
	store := &conflictingStore{GormStore: newTestStore(t)}
	l := newTestLedger(t, store)
	store.calls = 0

	_, err := l.ReconcileLot(context.Background(), ownerA, 404)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, 1, store.calls)
}

// failingReconcileStore makes every balance write fail.
type failingReconcileStore struct {
	*repository.GormStore
}

func (s *failingReconcileStore) Transaction(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.GormStore.Transaction(ctx, func(tx repository.Tx) error {
		return fn(&failingReconcileTx{Tx: tx})
	})
}

type failingReconcileTx struct {
	repository.Tx
}

func (tx *failingReconcileTx) Lots() repository.LotRepository {
	return &failingLots{LotRepository: tx.Tx.Lots()}
}

type failingLots struct {
	repository.LotRepository
}

var errDiskFull = errors.New("disk full")

func (r *failingLots) SetRemaining(ctx context.Context, id int, remaining decimal.Decimal) error {
	return errDiskFull
}

func TestReconciliationFailureAbortsMutation(t *testing.T) {
	inner := newTestStore(t)
	healthy := newTestLedger(t, inner)
	lot := addLot(t, healthy, ownerA, "10")

	broken := newTestLedger(t, &failingReconcileStore{GormStore: inner})
	_, err := broken.Apply(context.Background(), ownerA, &models.CreateConsumptionCommand{
		LotId: lot.ID, Quantity: dec("4"), Rate: dec("1"), ConsumedAt: testDay,
	})
	require.ErrorIs(t, err, errDiskFull)

	records, err := healthy.ListConsumptions(context.Background(), ownerA)
	require.NoError(t, err)
	assert.Empty(t, records)
	assertDecimal(t, "10", remaining(t, healthy, ownerA, lot.ID))
}

func TestBalanceInvariantHoldsAfterRandomMutations(t *testing.T) {
	l := newTestLedger(t, nil)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(20250301))

	lots := []*models.AcquisitionLot{
		addLot(t, l, ownerA, "100"),
		addLot(t, l, ownerA, "250.5"),
		addLot(t, l, ownerA, "3"),
	}
	var live []int

	for step := 0; step < 300; step++ {
		switch op := rng.Intn(10); {
		case op < 5 || len(live) == 0:
			lot := lots[rng.Intn(len(lots))]
			qty := decimal.NewFromInt(int64(rng.Intn(2000) + 1)).Div(decimal.NewFromInt(100))
			record, err := l.Apply(ctx, ownerA, &models.CreateConsumptionCommand{
				LotId: lot.ID, Quantity: qty, Rate: dec("3700"), ConsumedAt: testDay,
			})
			require.NoError(t, err)
			live = append(live, record.ID)
		case op < 8:
			id := live[rng.Intn(len(live))]
			qty := decimal.NewFromInt(int64(rng.Intn(500) + 1)).Div(decimal.NewFromInt(10))
			_, err := l.Apply(ctx, ownerA, &models.UpdateConsumptionCommand{
				Id: id, Quantity: qty, Rate: dec("3700"), ConsumedAt: testDay,
			})
			require.NoError(t, err)
		default:
			i := rng.Intn(len(live))
			_, err := l.Apply(ctx, ownerA, &models.DeleteConsumptionCommand{Id: live[i]})
			require.NoError(t, err)
			live = append(live[:i], live[i+1:]...)
		}
		if step%25 == 0 {
			assertBalanceInvariant(t, l, ownerA)
		}
	}
	assertBalanceInvariant(t, l, ownerA)

	for _, id := range live {
		_, err := l.SoftDeleteConsumption(ctx, ownerA, id)
		require.NoError(t, err)
	}
	for _, lot := range lots {
		assert.True(t, lot.QuantityAcquired.Equal(remaining(t, l, ownerA, lot.ID)))
	}
}
