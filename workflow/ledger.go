package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/tradelog_backend/config"
	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"bitbucket.org/mmdatafocus/tradelog_backend/repository"
	"bitbucket.org/mmdatafocus/tradelog_backend/utils"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const moduleName = "workflow"

// Ledger is the entry point for every lot and consumption mutation. Each
// mutation runs in one store transaction that locks the touched lots in
// ascending id order, writes, and reconciles before commit.
//
// The ledger never authenticates: callers pass the owner id resolved by the
// session middleware.
type Ledger struct {
	store    repository.Store
	logger   *logrus.Logger
	tracer   trace.Tracer
	locker   *redislock.Client
	settings config.LedgerSettings

	newBatchCode func() string
	sleep        func(ctx context.Context, d time.Duration) error
}

type LedgerOption func(*Ledger)

// WithOwnerLocker enables the best-effort per-owner Redis lock.
func WithOwnerLocker(locker *redislock.Client) LedgerOption {
	return func(l *Ledger) { l.locker = locker }
}

func WithBatchCodeGenerator(gen func() string) LedgerOption {
	return func(l *Ledger) { l.newBatchCode = gen }
}

func WithTracer(tracer trace.Tracer) LedgerOption {
	return func(l *Ledger) { l.tracer = tracer }
}

func NewLedger(store repository.Store, logger *logrus.Logger, settings config.LedgerSettings, opts ...LedgerOption) *Ledger {
	if logger == nil {
		logger = config.GetLogger()
	}
	l := &Ledger{
		store:        store,
		logger:       logger,
		tracer:       otel.Tracer("tradelog-ledger"),
		settings:     settings.Normalize(),
		newBatchCode: models.NewBatchCode,
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// mutate runs fn in a retried transaction scoped to ownerId.
func (l *Ledger) mutate(ctx context.Context, ownerId int, op string, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := requireOwner(ownerId); err != nil {
		return err
	}
	ctx = utils.SetOwnerIdInContext(ctx, ownerId)
	ctx, span := l.tracer.Start(ctx, "ledger."+op, trace.WithAttributes(attribute.Int("owner_id", ownerId)))
	defer span.End()

	unlock := l.lockOwner(ctx, ownerId)
	defer unlock()

	err := l.withRetry(ctx, op, func() error {
		return l.store.Transaction(ctx, func(tx repository.Tx) error {
			return fn(ctx, tx)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// view runs fn in a read-only unit of work scoped to ownerId.
func (l *Ledger) view(ctx context.Context, ownerId int, op string, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := requireOwner(ownerId); err != nil {
		return err
	}
	ctx = utils.SetOwnerIdInContext(ctx, ownerId)
	ctx, span := l.tracer.Start(ctx, "ledger."+op, trace.WithAttributes(attribute.Int("owner_id", ownerId)))
	defer span.End()

	err := l.store.View(ctx, func(tx repository.Tx) error {
		return fn(ctx, tx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (l *Ledger) pageRequest(page int) models.PageRequest {
	return models.PageRequest{Page: page}.Normalize(l.settings.PageSize)
}

func requireOwner(ownerId int) error {
	if ownerId <= 0 {
		return models.NewValidationError("owner_id", "is required")
	}
	return nil
}
