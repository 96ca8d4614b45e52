package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const BatchCodePrefix = "BS-"

// BatchConsumptionAction groups the records of one allocation.
type BatchConsumptionAction struct {
	ID                int             `gorm:"primary_key" json:"id"`
	OwnerId           int             `gorm:"index;not null" json:"owner_id"`
	BatchCode         string          `gorm:"size:20;not null;uniqueIndex" json:"batch_code"`
	RequestedQuantity decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"requested_quantity"`
	Rate              decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"rate"`
	ExecutedAt        time.Time       `gorm:"not null" json:"executed_at"`
	Remarks           string          `gorm:"size:255" json:"remarks"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`

	Records []*ConsumptionRecord `gorm:"-" json:"records,omitempty"`
}

func (batch *BatchConsumptionAction) IsDeleted() bool {
	return batch.DeletedAt.Valid
}

// NewBatchCode returns a human-referenceable code such as "BS-1F3A9C07".
func NewBatchCode() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return BatchCodePrefix + strings.ToUpper(id[:8])
}

// BatchAllocationRequest asks for Quantity to be drawn from LotIds in the
// given order.
type BatchAllocationRequest struct {
	Quantity   decimal.Decimal `json:"quantity" validate:"gt=0"`
	Rate       decimal.Decimal `json:"rate" validate:"gte=0"`
	ConsumedAt time.Time       `json:"consumed_at" validate:"required"`
	Remarks    string          `json:"remarks" validate:"max=255"`
	LotIds     []int           `json:"lot_ids"`
}

func (input *BatchAllocationRequest) Validate() error {
	input.Remarks = strings.TrimSpace(input.Remarks)
	if err := validateInput(input); err != nil {
		return err
	}
	if err := validateDecimal("quantity", input.Quantity); err != nil {
		return err
	}
	if err := validateDecimal("rate", input.Rate); err != nil {
		return err
	}
	if len(input.LotIds) == 0 {
		return NewValidationError("lot_ids", "at least one lot is required")
	}
	seen := make(map[int]bool, len(input.LotIds))
	for _, id := range input.LotIds {
		if id <= 0 {
			return NewValidationError("lot_ids", "invalid lot id")
		}
		if seen[id] {
			return NewValidationError("lot_ids", "duplicate lot id")
		}
		seen[id] = true
	}
	return nil
}

type BatchAllocation struct {
	Batch   *BatchConsumptionAction `json:"batch"`
	Records []*ConsumptionRecord    `json:"records"`
}

func (a *BatchAllocation) BatchCode() string {
	if a == nil || a.Batch == nil {
		return ""
	}
	return a.Batch.BatchCode
}

// TotalConsumed sums the quantities of the created records.
func (a *BatchAllocation) TotalConsumed() decimal.Decimal {
	total := decimal.Zero
	for _, r := range a.Records {
		total = total.Add(r.QuantityConsumed)
	}
	return total
}
