package repository

import (
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// classifyError maps lock failures and uniqueness races to
// models.ErrConcurrencyConflict so callers can retry the unit of work.
// The original error stays in the chain.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, models.ErrConcurrencyConflict) {
		return err
	}
	if isDuplicateKeyErr(err) {
		return fmt.Errorf("%w: %w", models.ErrConcurrencyConflict, err)
	}
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlErrDeadlock, mysqlErrLockWaitTimeout:
			return fmt.Errorf("%w: %w", models.ErrConcurrencyConflict, err)
		}
	}
	return err
}

// isDuplicateKeyErr accepts the translated gorm error and the raw MySQL one.
func isDuplicateKeyErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrDuplicateEntry
	}
	return false
}
