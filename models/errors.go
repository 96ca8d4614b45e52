package models

import (
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/tradelog_backend/utils"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned for missing or soft-deleted rows referenced by id.
	ErrNotFound = utils.ErrorRecordNotFound

	ErrValidation          = errors.New("validation failed")
	ErrOwnershipViolation  = errors.New("ownership violation")
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrConcurrencyConflict marks lock waits, deadlocks and unique-key races.
	// The ledger retries it with backoff before surfacing it.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func NewValidationError(field string, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// OwnershipViolationError is raised when a write references a row of another owner.
type OwnershipViolationError struct {
	Resource string
	Id       int
	OwnerId  int
}

func (e *OwnershipViolationError) Error() string {
	return fmt.Sprintf("%s %d does not belong to owner %d", e.Resource, e.Id, e.OwnerId)
}

func (e *OwnershipViolationError) Is(target error) bool {
	return target == ErrOwnershipViolation
}

type InsufficientBalanceError struct {
	Available decimal.Decimal `json:"available"`
	Requested decimal.Decimal `json:"requested"`
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %s, requested %s", e.Available.String(), e.Requested.String())
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}
