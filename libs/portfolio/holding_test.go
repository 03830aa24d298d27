package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"jax-backtest-engine/libs/eventcore"
	"jax-backtest-engine/libs/money"
)

func TestHoldingOnFillAveragesOpenPrice(t *testing.T) {
	h := NewHolding("600000.SH", Contract{Currency: "CNY", Multiplier: decimal.NewFromInt(1)})

	h.OnFill(eventcore.FillInfo{
		Symbol: "600000.SH", Direction: eventcore.Buy, OpenClose: eventcore.Open,
		FilledPrice: decimal.NewFromInt(10), Volume: decimal.NewFromInt(100),
	})
	if !h.OpenPrice.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected open price 10, got %s", h.OpenPrice)
	}

	h.OnFill(eventcore.FillInfo{
		Symbol: "600000.SH", Direction: eventcore.Buy, OpenClose: eventcore.Open,
		FilledPrice: decimal.NewFromInt(20), Volume: decimal.NewFromInt(100),
	})
	if !h.OpenPrice.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected VWAP open price 15 after a second equal-size fill, got %s", h.OpenPrice)
	}
	if !h.Volume.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected volume 200, got %s", h.Volume)
	}
}

func TestHoldingOnFillFlatteningResetsOpenPrice(t *testing.T) {
	h := NewHolding("600000.SH", Contract{Currency: "CNY", Multiplier: decimal.NewFromInt(1)})
	h.OnFill(eventcore.FillInfo{
		Direction: eventcore.Buy, OpenClose: eventcore.Open,
		FilledPrice: decimal.NewFromInt(10), Volume: decimal.NewFromInt(100),
	})
	h.OnFill(eventcore.FillInfo{
		Direction: eventcore.Sell, OpenClose: eventcore.Close,
		FilledPrice: decimal.NewFromInt(12), Volume: decimal.NewFromInt(100),
	})

	if !h.Volume.IsZero() {
		t.Fatalf("expected flat position, got volume %s", h.Volume)
	}
	if !h.OpenPrice.IsZero() {
		t.Fatalf("expected open price reset to zero once flat, got %s", h.OpenPrice)
	}
}

func TestHoldingCurrentValueConvertsToReference(t *testing.T) {
	table := money.NewTable("CNY")
	table.SetRate("USD", decimal.NewFromFloat(7.2), decimal.NewFromFloat(7.0))

	h := NewHolding("AAPL", Contract{Currency: "USD", Multiplier: decimal.NewFromInt(1)})
	h.OnPrice(eventcore.PriceInfo{Symbol: "AAPL", Timestamp: time.Now(), Current: decimal.NewFromInt(10)})
	h.Volume = decimal.NewFromInt(100)

	value, err := h.CurrentValue(table)
	if err != nil {
		t.Fatalf("CurrentValue: %v", err)
	}
	// 10 * 100 USD converted to CNY at the sell (toRef) rate of 7.0.
	if !value.Equal(decimal.NewFromInt(7000)) {
		t.Fatalf("expected 7000 CNY, got %s", value)
	}
}

func TestHoldingAmountToVolumeIsInverseOfVolumeToAmount(t *testing.T) {
	h := NewHolding("600000.SH", Contract{Currency: "CNY", Multiplier: decimal.NewFromInt(100)})
	amount := h.VolumeToAmount(decimal.NewFromInt(10), decimal.NewFromInt(20), eventcore.Buy)
	volume := h.AmountToVolume(amount, decimal.NewFromInt(20), eventcore.Buy)
	if !volume.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected round-trip volume 10, got %s", volume)
	}
}

func TestHoldingAmountToVolumeZeroPriceIsZero(t *testing.T) {
	h := NewHolding("600000.SH", Contract{Currency: "CNY", Multiplier: decimal.NewFromInt(1)})
	if v := h.AmountToVolume(decimal.NewFromInt(100), decimal.Zero, eventcore.Buy); !v.IsZero() {
		t.Fatalf("expected zero volume at zero price, got %s", v)
	}
}
