package strategies

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"jax-backtest-engine/libs/eventcore"
	"jax-backtest-engine/libs/ledger"
)

func feedPrice(u *MACrossoverUnit, current string, t time.Time) {
	u.OnPrice(eventcore.PriceInfo{
		Symbol:    u.symbol,
		Timestamp: t,
		Current:   decimal.RequireFromString(current),
	})
}

func TestMACrossoverActivatesAfterLongWindow(t *testing.T) {
	dispatcher := newTestDispatcher()
	factory := NewMACrossoverFactory(2, 4, "CNY", nil)
	unit := factory("600000.SH", eventcore.FillInfo{Volume: decimal.NewFromInt(1000)}, dispatcher).(*MACrossoverUnit)

	base := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	for i, p := range []string{"10", "10", "10", "10"} {
		feedPrice(unit, p, base.Add(time.Duration(i)*time.Minute))
	}

	if !unit.active {
		t.Fatal("expected unit to activate after filling the long window")
	}
	if dispatcher.Len() != 1 {
		t.Fatalf("flat prices should post only the first-activation signal, got %d queued events", dispatcher.Len())
	}
}

func TestMACrossoverPostsHalfVolumeSignalOnFirstActivation(t *testing.T) {
	dispatcher := newTestDispatcher()
	factory := NewMACrossoverFactory(1, 2, "CNY", nil)
	unit := factory("600000.SH", eventcore.FillInfo{Volume: decimal.NewFromInt(1000)}, dispatcher).(*MACrossoverUnit)

	base := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	feedPrice(unit, "10", base)
	feedPrice(unit, "11", base.Add(time.Minute))

	if dispatcher.Len() != 1 {
		t.Fatalf("expected exactly one signal posted on first activation, got %d", dispatcher.Len())
	}
	ev, err := dispatcher.ProcessNext(context.Background())
	if err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	signal, ok := ev.Payload.(eventcore.SignalInfo)
	if !ok {
		t.Fatalf("expected a SignalInfo payload, got %T", ev.Payload)
	}
	if !signal.Volume.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected half the seed volume (500), got %s", signal.Volume)
	}
}

func TestMACrossoverLogsOnClear(t *testing.T) {
	dir := t.TempDir()
	logStore, err := ledger.Open(dir, "strategy_ma.csv", MAHeader)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}

	dispatcher := newTestDispatcher()
	factory := NewMACrossoverFactory(1, 2, "CNY", logStore)
	unit := factory("600000.SH", eventcore.FillInfo{Volume: decimal.NewFromInt(1000)}, dispatcher).(*MACrossoverUnit)

	base := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	feedPrice(unit, "10", base)
	feedPrice(unit, "11", base.Add(time.Minute))

	unit.OnClear()
}
