package models_test

import (
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var acquiredAt = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func TestNewAcquisitionLotValidate(t *testing.T) {
	tests := []struct {
		name  string
		input models.NewAcquisitionLot
		field string
	}{
		{"ok", models.NewAcquisitionLot{Quantity: decimal.NewFromInt(10), Rate: decimal.RequireFromString("3500.5"), AcquiredAt: acquiredAt}, ""},
		{"zero quantity", models.NewAcquisitionLot{Quantity: decimal.Zero, AcquiredAt: acquiredAt}, "quantity"},
		{"negative quantity", models.NewAcquisitionLot{Quantity: decimal.NewFromInt(-1), AcquiredAt: acquiredAt}, "quantity"},
		{"negative rate", models.NewAcquisitionLot{Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(-1), AcquiredAt: acquiredAt}, "rate"},
		{"missing date", models.NewAcquisitionLot{Quantity: decimal.NewFromInt(1)}, "acquired_at"},
		{"too precise", models.NewAcquisitionLot{Quantity: decimal.RequireFromString("0.123456789"), AcquiredAt: acquiredAt}, "quantity"},
		{"too large", models.NewAcquisitionLot{Quantity: decimal.New(1, 13), AcquiredAt: acquiredAt}, "quantity"},
		{"unknown item", models.NewAcquisitionLot{ItemType: "BTC", Quantity: decimal.NewFromInt(1), AcquiredAt: acquiredAt}, "item_type"},
		{"long remarks", models.NewAcquisitionLot{Quantity: decimal.NewFromInt(1), AcquiredAt: acquiredAt, Remarks: strings.Repeat("x", 256)}, "remarks"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.field == "" {
				require.NoError(t, err)
				assert.Equal(t, models.ItemTypeUSDT, tt.input.ItemType)
				return
			}
			var ve *models.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.ErrorIs(t, err, models.ErrValidation)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestNewAcquisitionLotStartsFull(t *testing.T) {
	input := models.NewAcquisitionLot{Quantity: decimal.NewFromInt(7), AcquiredAt: acquiredAt, Remarks: "  otc  "}
	require.NoError(t, input.Validate())
	lot := input.Lot(3)
	assert.Equal(t, 3, lot.OwnerId)
	assert.True(t, lot.QuantityRemaining.Equal(lot.QuantityAcquired))
	assert.Equal(t, models.LotStatusAvailable, lot.Status)
	assert.Equal(t, "otc", lot.Remarks)
}

func TestBatchAllocationRequestValidate(t *testing.T) {
	base := func() models.BatchAllocationRequest {
		return models.BatchAllocationRequest{Quantity: decimal.NewFromInt(5), ConsumedAt: acquiredAt, LotIds: []int{1, 2}}
	}
	ok := base()
	require.NoError(t, ok.Validate())

	tests := map[string]func(r *models.BatchAllocationRequest){
		"no lots":      func(r *models.BatchAllocationRequest) { r.LotIds = nil },
		"duplicate":    func(r *models.BatchAllocationRequest) { r.LotIds = []int{1, 1} },
		"bad id":       func(r *models.BatchAllocationRequest) { r.LotIds = []int{0} },
		"zero qty":     func(r *models.BatchAllocationRequest) { r.Quantity = decimal.Zero },
		"missing date": func(r *models.BatchAllocationRequest) { r.ConsumedAt = time.Time{} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			r := base()
			mutate(&r)
			assert.ErrorIs(t, r.Validate(), models.ErrValidation)
		})
	}
}

func TestConsumptionCommandsValidate(t *testing.T) {
	create := &models.CreateConsumptionCommand{LotId: 1, Quantity: decimal.NewFromInt(1), ConsumedAt: acquiredAt}
	require.NoError(t, create.Validate())
	assert.Equal(t, models.ConsumptionActionCreate, create.Action())

	assert.ErrorIs(t, (&models.CreateConsumptionCommand{Quantity: decimal.NewFromInt(1), ConsumedAt: acquiredAt}).Validate(), models.ErrValidation)
	assert.ErrorIs(t, (&models.UpdateConsumptionCommand{Id: 1, ConsumedAt: acquiredAt}).Validate(), models.ErrValidation)
	assert.ErrorIs(t, (&models.DeleteConsumptionCommand{}).Validate(), models.ErrValidation)
	assert.NoError(t, (&models.DeleteConsumptionCommand{Id: 4}).Validate())
}

func TestNewUserPasswordRules(t *testing.T) {
	tests := []struct {
		password string
		valid    bool
	}{
		{"Str0ng!pass", true},
		{"str0ng!pass", false},
		{"STR0NG!PASS", false},
		{"Strong!pass", false},
		{"Str0ngpass", false},
		{"S0!a", false},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			input := models.NewUser{Username: "trader01", Password: tt.password, ConfirmPassword: tt.password}
			err := input.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, models.ErrValidation)
			}
		})
	}
}

func TestPagination(t *testing.T) {
	assert.Equal(t, 0, models.TotalPages(0, 10))
	assert.Equal(t, 1, models.TotalPages(10, 10))
	assert.Equal(t, 2, models.TotalPages(11, 10))
	assert.Equal(t, 0, models.TotalPages(5, 0))

	p := models.PageRequest{Page: -3}.Normalize(25)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 25, p.Size)
	assert.Equal(t, 0, p.Offset())
	assert.Equal(t, 50, models.PageRequest{Page: 3, Size: 25}.Offset())
}

func TestLotSearch(t *testing.T) {
	assert.Equal(t, "Binance P2P", models.LotSearch{Query: "  Binance P2P "}.Text())

	floor, ok := models.LotSearch{Query: " USDT 1,250.5 "}.RateFloor()
	require.True(t, ok)
	assert.True(t, floor.Equal(decimal.RequireFromString("1250.5")))
	_, ok = models.LotSearch{Query: "binance"}.RateFloor()
	assert.False(t, ok)
	_, ok = models.LotSearch{}.RateFloor()
	assert.False(t, ok)
}

func TestLotStatusOf(t *testing.T) {
	assert.Equal(t, models.LotStatusAvailable, models.LotStatusOf(decimal.RequireFromString("0.00000001")))
	assert.Equal(t, models.LotStatusDepleted, models.LotStatusOf(decimal.Zero))
	assert.Equal(t, models.LotStatusOversold, models.LotStatusOf(decimal.NewFromInt(-2)))
}

func TestParseItemType(t *testing.T) {
	got, err := models.ParseItemType(" usdt ")
	require.NoError(t, err)
	assert.Equal(t, models.ItemTypeUSDT, got)
	_, err = models.ParseItemType("btc")
	assert.Error(t, err)

	var it models.ItemType
	assert.Error(t, it.UnmarshalJSON([]byte(`"eth"`)))
	assert.Error(t, it.UnmarshalJSON([]byte(`12`)))
	require.NoError(t, it.UnmarshalJSON([]byte(`"Usdt"`)))
	assert.Equal(t, models.ItemTypeUSDT, it)
}

func TestNewBatchCode(t *testing.T) {
	code := models.NewBatchCode()
	assert.Regexp(t, `^BS-[0-9A-F]{8}$`, code)
	assert.NotEqual(t, code, models.NewBatchCode())
}

func TestConsumptionFilterNormalize(t *testing.T) {
	f := models.ConsumptionFilter{BatchCode: " bs-1f3a9c07 ", LotId: -4}.Normalize()
	assert.Equal(t, "BS-1F3A9C07", f.BatchCode)
	assert.Equal(t, 0, f.LotId)
}
