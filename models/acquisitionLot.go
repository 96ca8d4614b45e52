package models

import (
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/tradelog_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AcquisitionLot is one purchase of a fixed quantity. QuantityAcquired never
// changes after creation; QuantityRemaining is owned by the balance reconciler.
type AcquisitionLot struct {
	ID                int             `gorm:"primary_key" json:"id"`
	OwnerId           int             `gorm:"index;not null" json:"owner_id"`
	ItemType          ItemType        `gorm:"size:20;not null;default:USDT" json:"item_type"`
	QuantityAcquired  decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"quantity_acquired"`
	QuantityRemaining decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"quantity_remaining"`
	AcquisitionRate   decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"acquisition_rate"`
	AcquiredAt        time.Time       `gorm:"not null" json:"acquired_at"`
	Remarks           string          `gorm:"size:255" json:"remarks"`
	Status            LotStatus       `gorm:"-" json:"status"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (lot *AcquisitionLot) AfterFind(tx *gorm.DB) error {
	lot.RefreshStatus()
	return nil
}

func (lot *AcquisitionLot) RefreshStatus() {
	lot.Status = LotStatusOf(lot.QuantityRemaining)
}

func (lot *AcquisitionLot) IsDeleted() bool {
	return lot.DeletedAt.Valid
}

// Snapshot is the read-only view embedded in consumption listings.
func (lot *AcquisitionLot) Snapshot() *LotSnapshot {
	return &LotSnapshot{
		ID:                lot.ID,
		ItemType:          lot.ItemType,
		QuantityRemaining: lot.QuantityRemaining,
		AcquisitionRate:   lot.AcquisitionRate,
		Status:            LotStatusOf(lot.QuantityRemaining),
		Deleted:           lot.IsDeleted(),
	}
}

type LotSnapshot struct {
	ID                int             `json:"id"`
	ItemType          ItemType        `json:"item_type"`
	QuantityRemaining decimal.Decimal `json:"quantity_remaining"`
	AcquisitionRate   decimal.Decimal `json:"acquisition_rate"`
	Status            LotStatus       `json:"status"`
	Deleted           bool            `json:"deleted"`
}

type NewAcquisitionLot struct {
	ItemType   ItemType        `json:"item_type"`
	Quantity   decimal.Decimal `json:"quantity" validate:"gt=0"`
	Rate       decimal.Decimal `json:"rate" validate:"gte=0"`
	AcquiredAt time.Time       `json:"acquired_at" validate:"required"`
	Remarks    string          `json:"remarks" validate:"max=255"`
}

func (input *NewAcquisitionLot) Validate() error {
	if input.ItemType == "" {
		input.ItemType = ItemTypeUSDT
	}
	if !input.ItemType.IsValid() {
		return NewValidationError("item_type", "unknown item type")
	}
	input.Remarks = strings.TrimSpace(input.Remarks)
	if err := validateInput(input); err != nil {
		return err
	}
	if err := validateDecimal("quantity", input.Quantity); err != nil {
		return err
	}
	return validateDecimal("rate", input.Rate)
}

// Lot builds a new lot with the full quantity remaining.
func (input *NewAcquisitionLot) Lot(ownerId int) *AcquisitionLot {
	lot := &AcquisitionLot{
		OwnerId:           ownerId,
		ItemType:          input.ItemType,
		QuantityAcquired:  input.Quantity,
		QuantityRemaining: input.Quantity,
		AcquisitionRate:   input.Rate,
		AcquiredAt:        input.AcquiredAt,
		Remarks:           input.Remarks,
	}
	lot.RefreshStatus()
	return lot
}

// UpdateAcquisitionLot carries the editable fields of a lot. The acquired
// quantity is deliberately absent.
type UpdateAcquisitionLot struct {
	ItemType   ItemType        `json:"item_type"`
	Rate       decimal.Decimal `json:"rate" validate:"gte=0"`
	AcquiredAt time.Time       `json:"acquired_at" validate:"required"`
	Remarks    string          `json:"remarks" validate:"max=255"`
}

func (input *UpdateAcquisitionLot) Validate() error {
	if input.ItemType == "" {
		input.ItemType = ItemTypeUSDT
	}
	if !input.ItemType.IsValid() {
		return NewValidationError("item_type", "unknown item type")
	}
	input.Remarks = strings.TrimSpace(input.Remarks)
	if err := validateInput(input); err != nil {
		return err
	}
	return validateDecimal("rate", input.Rate)
}

func (input *UpdateAcquisitionLot) Apply(lot *AcquisitionLot) {
	lot.ItemType = input.ItemType
	lot.AcquisitionRate = input.Rate
	lot.AcquiredAt = input.AcquiredAt
	lot.Remarks = input.Remarks
}

type LotFilter struct {
	ItemType        ItemType `json:"item_type"`
	IncludeDepleted bool     `json:"include_depleted"`
}

// LotSearch matches remarks by substring, or treats a numeric query as a
// minimum acquisition rate.
type LotSearch struct {
	Query           string `json:"search"`
	IncludeDepleted bool   `json:"include_depleted"`
}

func (s LotSearch) Text() string {
	return strings.TrimSpace(s.Query)
}

func (s LotSearch) RateFloor() (decimal.Decimal, bool) {
	q := s.Text()
	if q == "" {
		return decimal.Zero, false
	}
	d, err := utils.ParseFormattedDecimal(q)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
