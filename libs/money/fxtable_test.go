package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestTableReferenceRatesAreOne(t *testing.T) {
	table := NewTable("CNY")
	if !table.IsValidCurrency("CNY") {
		t.Fatalf("reference currency must be valid")
	}
	got, err := table.BuyWithReference("CNY", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("reference buy rate should be identity, got %s", got)
	}
}

func TestTableRoundTrip(t *testing.T) {
	table := NewTable("CNY")
	table.SetRate("HKD", decimal.NewFromFloat(1.0/0.82510), decimal.NewFromFloat(0.82490))

	flow, err := NewCashFlow(table, "HKD", decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	refAmount, err := flow.ToReference(table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	back, err := table.BuyWithReference("HKD", refAmount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	diff := back.Sub(flow.Amount).Abs()
	if diff.GreaterThan(decimal.NewFromFloat(0.5)) {
		t.Fatalf("round trip drifted too far: original=%s back=%s", flow.Amount, back)
	}
}

func TestTableUnknownCurrency(t *testing.T) {
	table := NewTable("CNY")
	if _, err := NewCashFlow(table, "USD", decimal.NewFromInt(1)); err == nil {
		t.Fatalf("expected ErrInvalidCurrency for unregistered currency")
	}
}

func TestCashFlowNegativeAmount(t *testing.T) {
	table := NewTable("CNY")
	if _, err := NewCashFlow(table, "CNY", decimal.NewFromInt(-1)); err == nil {
		t.Fatalf("expected ErrInvalidAmount for negative amount")
	}
}
