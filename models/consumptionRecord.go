package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ConsumptionRecord draws QuantityConsumed from exactly one lot. Records
// created by a batch allocation carry the batch id in BatchRef.
type ConsumptionRecord struct {
	ID               int             `gorm:"primary_key" json:"id"`
	OwnerId          int             `gorm:"index;not null" json:"owner_id"`
	LotId            int             `gorm:"index;not null" json:"lot_id"`
	QuantityConsumed decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"quantity_consumed"`
	ConsumptionRate  decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"consumption_rate"`
	ConsumedAt       time.Time       `gorm:"not null" json:"consumed_at"`
	Remarks          string          `gorm:"size:255" json:"remarks"`
	BatchRef         *int            `gorm:"index" json:"batch_ref"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`

	Lot   *LotSnapshot            `gorm:"-" json:"lot,omitempty"`
	Batch *BatchConsumptionAction `gorm:"-" json:"batch,omitempty"`
}

func (record *ConsumptionRecord) IsBatchMember() bool {
	return record.BatchRef != nil
}

func (record *ConsumptionRecord) IsDeleted() bool {
	return record.DeletedAt.Valid
}

type ConsumptionFilter struct {
	BatchCode string `json:"batch_code"`
	LotId     int    `json:"lot_id"`
}

func (f ConsumptionFilter) Normalize() ConsumptionFilter {
	f.BatchCode = strings.ToUpper(strings.TrimSpace(f.BatchCode))
	if f.LotId < 0 {
		f.LotId = 0
	}
	return f
}
