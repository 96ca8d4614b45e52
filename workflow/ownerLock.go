package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

const (
	ownerLockTTL     = 30 * time.Second
	ownerLockRetries = 20
	ownerLockBackoff = 50 * time.Millisecond
)

func ownerLockKey(ownerId int) string {
	return fmt.Sprintf("ledger:%d", ownerId)
}

// lockOwner takes the per-owner Redis lock when a locker is configured.
// The lock only reduces contention; row locks inside the transaction are
// what keep balances consistent, so failures are logged and ignored.
func (l *Ledger) lockOwner(ctx context.Context, ownerId int) (release func()) {
	release = func() {}
	if l.locker == nil {
		return release
	}

	lock, err := l.locker.Obtain(ctx, ownerLockKey(ownerId), ownerLockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(ownerLockBackoff), ownerLockRetries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		l.logger.WithFields(logrus.Fields{
			"module":   moduleName,
			"owner_id": ownerId,
		}).Warn("could not obtain redis lock; proceeding without redis lock")
		return release
	}
	if err != nil {
		l.logger.WithFields(logrus.Fields{
			"module":   moduleName,
			"owner_id": ownerId,
		}).Warn("error obtaining redis lock; proceeding without redis lock: " + err.Error())
		return release
	}

	return func() {
		if releaseErr := lock.Release(context.Background()); releaseErr != nil && !errors.Is(releaseErr, redislock.ErrLockNotHeld) {
			l.logger.WithFields(logrus.Fields{
				"module":   moduleName,
				"owner_id": ownerId,
			}).Warn("failed to release redis lock: " + releaseErr.Error())
		}
	}
}
