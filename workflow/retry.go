package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/tradelog_backend/config"
	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"github.com/sirupsen/logrus"
)

const maxRetryBackoff = 2 * time.Second

// withRetry re-runs fn while it fails with models.ErrConcurrencyConflict,
// up to settings.MaxAttempts attempts with exponential backoff.
func (l *Ledger) withRetry(ctx context.Context, op string, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !errors.Is(err, models.ErrConcurrencyConflict) {
			return err
		}
		if attempt >= l.settings.MaxAttempts {
			config.LogError(l.logger, moduleName, op, "retries exhausted", logrus.Fields{"attempts": attempt}, err)
			return err
		}

		wait := retryDelay(l.settings.RetryBackoff, attempt)
		l.logger.WithFields(logrus.Fields{
			"module":  moduleName,
			"op":      op,
			"attempt": attempt,
			"wait":    wait.String(),
		}).Warn("concurrency conflict; retrying: " + err.Error())
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func retryDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	return config.BackoffDuration(attempt, base, maxRetryBackoff)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
