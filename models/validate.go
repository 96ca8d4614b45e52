package models

import (
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/tradelog_backend/utils"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// quantities and rates are stored as decimal(20,8)
const (
	MaxDecimalPlaces = 8
	maxIntegerDigits = 12
)

// validateInput runs the struct's validate tags and reports the first
// failing field as a *ValidationError.
func validateInput(input any) error {
	err := utils.ValidateStruct(input)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		return NewValidationError(fe.Field(), validationMessage(fe))
	}
	return NewValidationError("", err.Error())
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "eqfield":
		return "must match " + fe.Param()
	}
	return "failed on " + fe.Tag()
}

func validateDecimal(field string, d decimal.Decimal) error {
	if d.Exponent() < -MaxDecimalPlaces && !d.Equal(d.Truncate(MaxDecimalPlaces)) {
		return NewValidationError(field, fmt.Sprintf("must have at most %d decimal places", MaxDecimalPlaces))
	}
	if d.Abs().GreaterThanOrEqual(decimal.New(1, maxIntegerDigits)) {
		return NewValidationError(field, "is too large")
	}
	return nil
}
