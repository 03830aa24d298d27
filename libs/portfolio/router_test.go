package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"jax-backtest-engine/libs/eventcore"
	"jax-backtest-engine/libs/money"
	"jax-backtest-engine/libs/wallet"
)

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

func newTestDispatcher() *eventcore.Dispatcher {
	return eventcore.NewDispatcher(fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		time.Date(2099, 12, 31, 0, 0, 0, 0, time.UTC))
}

func fixedContractLookup(ccy money.Currency, multiplier string) ContractLookup {
	return func(string) Contract {
		return Contract{Currency: ccy, Multiplier: decimal.RequireFromString(multiplier)}
	}
}

func newTestRouter(t *testing.T, capital decimal.Decimal) (*Router, *eventcore.Dispatcher) {
	t.Helper()
	table := money.NewTable("CNY")
	w := wallet.New(table)
	dispatcher := newTestDispatcher()
	tick := func() time.Time { return time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC) }
	r := NewRouter(context.Background(), table, w, fixedContractLookup("CNY", "1"), dispatcher, tick)
	if !capital.IsZero() {
		if err := r.Subscribe(capital, "CNY"); err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
	}
	return r, dispatcher
}

func postSignal(t *testing.T, dispatcher *eventcore.Dispatcher, signal eventcore.SignalInfo) {
	t.Helper()
	ev, err := eventcore.NewEvent(eventcore.KindSignal, signal.Timestamp, signal)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	dispatcher.Post(ev)
	if err := dispatcher.ProcessThrough(context.Background()); err != nil {
		t.Fatalf("ProcessThrough: %v", err)
	}
}

func TestSubscribeIssuesSharesAtUnitNetPrice(t *testing.T) {
	r, _ := newTestRouter(t, decimal.Zero)
	if err := r.Subscribe(decimal.NewFromInt(1_000_000), "CNY"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if !r.Share.Equal(decimal.NewFromInt(1_000_000)) {
		t.Fatalf("expected 1,000,000 shares at net price 1, got %s", r.Share)
	}
}

func TestProcessBuySignalFreezesWalletAndPostsOrder(t *testing.T) {
	r, dispatcher := newTestRouter(t, decimal.NewFromInt(1_000_000))

	signal := eventcore.SignalInfo{
		ID: "s1", Symbol: "600000.SH", Timestamp: time.Now(),
		Direction: eventcore.Buy, OpenClose: eventcore.Open,
		Price: decimal.NewFromInt(10), Volume: decimal.NewFromInt(100),
		Amount: decimal.NewFromInt(1000), Currency: "CNY", SignalType_: eventcore.SignalFOK,
	}
	postSignal(t, dispatcher, signal)

	if dispatcher.Len() != 0 {
		t.Fatalf("expected the order event drained by ProcessThrough, got %d queued", dispatcher.Len())
	}
	wantAvailable := decimal.NewFromInt(1_000_000 - 1000)
	if got := r.wallet.Available(); !got.Equal(wantAvailable) {
		t.Fatalf("expected %s available after freezing the order budget, got %s", wantAvailable, got)
	}
}

func TestProcessBuySignalQueuesTBFRemainderWhenUnaffordable(t *testing.T) {
	r, dispatcher := newTestRouter(t, decimal.NewFromInt(100))

	signal := eventcore.SignalInfo{
		ID: "s1", Symbol: "600000.SH", Timestamp: time.Now(),
		Direction: eventcore.Buy, OpenClose: eventcore.Open,
		Price: decimal.NewFromInt(10), Volume: decimal.NewFromInt(100),
		Amount: decimal.NewFromInt(1000), Currency: "CNY", SignalType_: eventcore.SignalTBF,
	}
	postSignal(t, dispatcher, signal)

	if r.buyQueue.Len() != 1 {
		t.Fatalf("expected the unaffordable remainder queued, got length %d", r.buyQueue.Len())
	}
	if got := r.wallet.Available(); !got.IsZero() {
		t.Fatalf("expected the affordable lot to consume all available cash, got %s", got)
	}
}

func TestOnFillUpdatesHoldingAndReleasesFreeze(t *testing.T) {
	r, dispatcher := newTestRouter(t, decimal.NewFromInt(1_000_000))

	signal := eventcore.SignalInfo{
		ID: "s1", Symbol: "600000.SH", Timestamp: time.Now(),
		Direction: eventcore.Buy, OpenClose: eventcore.Open,
		Price: decimal.NewFromInt(10), Volume: decimal.NewFromInt(100),
		Amount: decimal.NewFromInt(1000), Currency: "CNY", SignalType_: eventcore.SignalFOK,
	}
	postSignal(t, dispatcher, signal)

	fill := eventcore.FillInfo{
		OrderID: "s1", Symbol: "600000.SH", Timestamp: time.Now(),
		Direction: eventcore.Buy, OpenClose: eventcore.Open,
		FilledPrice: decimal.NewFromInt(10), Volume: decimal.NewFromInt(100),
	}
	ev, err := eventcore.NewEvent(eventcore.KindFill, fill.Timestamp, fill)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	dispatcher.Post(ev)
	if err := dispatcher.ProcessThrough(context.Background()); err != nil {
		t.Fatalf("ProcessThrough: %v", err)
	}

	h := r.holding("600000.SH")
	if !h.Volume.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected holding volume 100 after the fill, got %s", h.Volume)
	}
	if got := r.wallet.Available(); !got.Equal(decimal.NewFromInt(1_000_000 - 1000)) {
		t.Fatalf("expected the frozen 1000 to have become spent cash, got %s available", got)
	}
}

func TestDrainBuyQueuePopsOnceCashFrees(t *testing.T) {
	r, dispatcher := newTestRouter(t, decimal.NewFromInt(500))

	signal := eventcore.SignalInfo{
		ID: "s1", Symbol: "600000.SH", Timestamp: time.Now(),
		Direction: eventcore.Buy, OpenClose: eventcore.Open,
		Price: decimal.NewFromInt(10), Volume: decimal.NewFromInt(100),
		Amount: decimal.NewFromInt(1000), Currency: "CNY", SignalType_: eventcore.SignalFOW,
	}
	postSignal(t, dispatcher, signal)
	if r.buyQueue.Len() != 1 {
		t.Fatalf("expected the unaffordable FOW signal queued, got length %d", r.buyQueue.Len())
	}

	if err := r.Subscribe(decimal.NewFromInt(1000), "CNY"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	clearEv, err := eventcore.NewEvent(eventcore.KindClear, time.Now(), nil)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	dispatcher.Post(clearEv)
	if err := dispatcher.ProcessThrough(context.Background()); err != nil {
		t.Fatalf("ProcessThrough: %v", err)
	}

	if r.buyQueue.Len() != 0 {
		t.Fatalf("expected the queued signal drained once cash was available, got length %d", r.buyQueue.Len())
	}
}

func TestCancelSymbolReleasesOnlyThatSymbol(t *testing.T) {
	r, dispatcher := newTestRouter(t, decimal.NewFromInt(10_000))

	for _, symbol := range []string{"A", "B"} {
		signal := eventcore.SignalInfo{
			ID: symbol, Symbol: symbol, Timestamp: time.Now(),
			Direction: eventcore.Buy, OpenClose: eventcore.Open,
			Price: decimal.NewFromInt(10), Volume: decimal.NewFromInt(10),
			Amount: decimal.NewFromInt(100), Currency: "CNY", SignalType_: eventcore.SignalFOK,
		}
		postSignal(t, dispatcher, signal)
	}

	before := r.wallet.Available()
	r.CancelSymbol("A")
	after := r.wallet.Available()
	if !after.Equal(before.Add(decimal.NewFromInt(100))) {
		t.Fatalf("expected releasing A's freeze to free 100, got %s -> %s", before, after)
	}
	if len(r.activeSymbols["B"]) != 1 {
		t.Fatalf("expected B's freeze untouched, got %v", r.activeSymbols["B"])
	}
}
