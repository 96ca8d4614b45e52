package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ConsumptionCommand is one single-lot consumption mutation. The set of
// implementations is closed: Create, Update and Delete.
type ConsumptionCommand interface {
	Validate() error
	Action() ConsumptionAction
	isConsumptionCommand()
}

type ConsumptionAction string

const (
	ConsumptionActionCreate ConsumptionAction = "create"
	ConsumptionActionUpdate ConsumptionAction = "update"
	ConsumptionActionDelete ConsumptionAction = "delete"
)

type CreateConsumptionCommand struct {
	LotId      int             `json:"lot_id" validate:"gt=0"`
	Quantity   decimal.Decimal `json:"quantity" validate:"gt=0"`
	Rate       decimal.Decimal `json:"rate" validate:"gte=0"`
	ConsumedAt time.Time       `json:"consumed_at" validate:"required"`
	Remarks    string          `json:"remarks" validate:"max=255"`
}

func (c *CreateConsumptionCommand) Validate() error {
	c.Remarks = strings.TrimSpace(c.Remarks)
	if err := validateInput(c); err != nil {
		return err
	}
	if err := validateDecimal("quantity", c.Quantity); err != nil {
		return err
	}
	return validateDecimal("rate", c.Rate)
}

func (c *CreateConsumptionCommand) Action() ConsumptionAction { return ConsumptionActionCreate }
func (*CreateConsumptionCommand) isConsumptionCommand() {}

func (c *CreateConsumptionCommand) Record(ownerId int) *ConsumptionRecord {
	return &ConsumptionRecord{
		OwnerId:          ownerId,
		LotId:            c.LotId,
		QuantityConsumed: c.Quantity,
		ConsumptionRate:  c.Rate,
		ConsumedAt:       c.ConsumedAt,
		Remarks:          c.Remarks,
	}
}

// UpdateConsumptionCommand edits a record in place. The referenced lot
// cannot be changed.
type UpdateConsumptionCommand struct {
	Id         int             `json:"id" validate:"gt=0"`
	Quantity   decimal.Decimal `json:"quantity" validate:"gt=0"`
	Rate       decimal.Decimal `json:"rate" validate:"gte=0"`
	ConsumedAt time.Time       `json:"consumed_at" validate:"required"`
	Remarks    string          `json:"remarks" validate:"max=255"`
}

func (c *UpdateConsumptionCommand) Validate() error {
	c.Remarks = strings.TrimSpace(c.Remarks)
	if err := validateInput(c); err != nil {
		return err
	}
	if err := validateDecimal("quantity", c.Quantity); err != nil {
		return err
	}
	return validateDecimal("rate", c.Rate)
}

func (c *UpdateConsumptionCommand) Action() ConsumptionAction { return ConsumptionActionUpdate }
func (*UpdateConsumptionCommand) isConsumptionCommand() {}

func (c *UpdateConsumptionCommand) Apply(record *ConsumptionRecord) {
	record.QuantityConsumed = c.Quantity
	record.ConsumptionRate = c.Rate
	record.ConsumedAt = c.ConsumedAt
	record.Remarks = c.Remarks
}

type DeleteConsumptionCommand struct {
	Id int `json:"id" validate:"gt=0"`
}

func (c *DeleteConsumptionCommand) Validate() error {
	return validateInput(c)
}

func (c *DeleteConsumptionCommand) Action() ConsumptionAction { return ConsumptionActionDelete }
func (*DeleteConsumptionCommand) isConsumptionCommand() {}
