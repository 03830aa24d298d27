package wallet

import (
	"testing"

	"jax-backtest-engine/libs/eventcore"
	"jax-backtest-engine/libs/money"

	"github.com/shopspring/decimal"
)

func newTestWallet(t *testing.T) *Wallet {
	t.Helper()
	table := money.NewTable("CNY")
	w := New(table)
	flow, err := money.NewCashFlow(table, "CNY", decimal.NewFromInt(10000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := w.Input(flow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return w
}

func TestWalletFreezeAndRelease(t *testing.T) {
	w := newTestWallet(t)
	if _, err := w.Freeze("o1", "600000", "CNY", decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.Available().Equal(decimal.NewFromInt(9000)) {
		t.Fatalf("available after freeze = %s, want 9000", w.Available())
	}
	w.Release("o1", "600000")
	if !w.Available().Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("available after release = %s, want 10000", w.Available())
	}
}

func TestWalletOutputRejectsOverdraft(t *testing.T) {
	w := newTestWallet(t)
	if _, ok, err := w.Output("CNY", decimal.NewFromInt(20000)); err != nil || ok {
		t.Fatalf("expected ok=false for an overdraft, got ok=%v err=%v", ok, err)
	}
}

func TestWalletProcessFullFillReleasesFrozenSlot(t *testing.T) {
	w := newTestWallet(t)
	if _, err := w.Freeze("o1", "600000", "CNY", decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fill := eventcore.FillInfo{OrderID: "o1", Symbol: "600000", Direction: eventcore.Buy, FilledPrice: decimal.NewFromInt(10), Volume: decimal.NewFromInt(100)}
	flow, err := money.NewCashFlow(w.table, "CNY", decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.ProcessFullFill(fill, flow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.Available().Equal(decimal.NewFromInt(9000)) {
		t.Fatalf("available after full fill = %s, want 9000", w.Available())
	}
	if w.Total().GreaterThan(w.Available()) {
		t.Fatalf("expected no residual frozen balance, total=%s available=%s", w.Total(), w.Available())
	}
}
