package models

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

type ItemType string

const (
	ItemTypeUSDT ItemType = "USDT"
)

func (t ItemType) IsValid() bool {
	switch t {
	case ItemTypeUSDT:
		return true
	}
	return false
}

// ParseItemType accepts the item type case-insensitively.
func ParseItemType(s string) (ItemType, error) {
	t := ItemType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", errors.New("invalid item type")
	}
	return t, nil
}

func (t *ItemType) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("item type must be string")
	}
	if str == "" {
		*t = ""
		return nil
	}
	parsed, err := ParseItemType(str)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// LotStatus is derived from the sign of a lot's remaining quantity and is never stored.
type LotStatus string

const (
	LotStatusAvailable LotStatus = "available"
	LotStatusDepleted  LotStatus = "depleted"
	LotStatusOversold  LotStatus = "oversold"
)

func LotStatusOf(remaining decimal.Decimal) LotStatus {
	switch remaining.Sign() {
	case 1:
		return LotStatusAvailable
	case 0:
		return LotStatusDepleted
	default:
		return LotStatusOversold
	}
}
