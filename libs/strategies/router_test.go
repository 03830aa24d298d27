package strategies

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"jax-backtest-engine/libs/eventcore"
)

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

type recordingUnit struct {
	symbol   string
	prices   int
	bars     int
	fills    int
	cleared  int
	ended    int
}

func (u *recordingUnit) Symbol() string                      { return u.symbol }
func (u *recordingUnit) OnPrice(eventcore.PriceInfo)         { u.prices++ }
func (u *recordingUnit) OnBar(eventcore.BarInfo)             { u.bars++ }
func (u *recordingUnit) OnFill(eventcore.FillInfo)           { u.fills++ }
func (u *recordingUnit) OnClear()                            { u.cleared++ }
func (u *recordingUnit) OnEnd()                              { u.ended++ }

func newTestDispatcher() *eventcore.Dispatcher {
	return eventcore.NewDispatcher(fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		time.Date(2099, 12, 31, 0, 0, 0, 0, time.UTC))
}

func TestRouterLazilyRegistersUnitOnBuyOpenFill(t *testing.T) {
	dispatcher := newTestDispatcher()
	var built *recordingUnit
	factory := func(symbol string, initFill eventcore.FillInfo, d *eventcore.Dispatcher) Unit {
		built = &recordingUnit{symbol: symbol}
		return built
	}
	router := NewRouter(factory, dispatcher)

	fill := eventcore.FillInfo{
		OrderID:     "o1",
		Symbol:      "600000.SH",
		Timestamp:   time.Now(),
		Direction:   eventcore.Buy,
		OpenClose:   eventcore.Open,
		FilledPrice: decimal.NewFromInt(10),
		Volume:      decimal.NewFromInt(100),
	}
	ev, err := eventcore.NewEvent(eventcore.KindFill, fill.Timestamp, fill)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	dispatcher.Post(ev)
	if err := dispatcher.ProcessThrough(context.Background()); err != nil {
		t.Fatalf("ProcessThrough: %v", err)
	}

	if router.Unit("600000.SH") == nil {
		t.Fatal("expected unit to be lazily registered")
	}
	if built.fills != 1 {
		t.Fatalf("expected 1 fill routed, got %d", built.fills)
	}
}

func TestRouterIgnoresSellFillForUnknownSymbol(t *testing.T) {
	dispatcher := newTestDispatcher()
	calls := 0
	factory := func(symbol string, initFill eventcore.FillInfo, d *eventcore.Dispatcher) Unit {
		calls++
		return &recordingUnit{symbol: symbol}
	}
	router := NewRouter(factory, dispatcher)

	fill := eventcore.FillInfo{
		Symbol:      "600000.SH",
		Timestamp:   time.Now(),
		Direction:   eventcore.Sell,
		OpenClose:   eventcore.Close,
		FilledPrice: decimal.NewFromInt(10),
		Volume:      decimal.NewFromInt(100),
	}
	ev, _ := eventcore.NewEvent(eventcore.KindFill, fill.Timestamp, fill)
	dispatcher.Post(ev)
	if err := dispatcher.ProcessThrough(context.Background()); err != nil {
		t.Fatalf("ProcessThrough: %v", err)
	}

	if calls != 0 {
		t.Fatalf("expected no unit construction on a sell-close fill, got %d factory calls", calls)
	}
	if router.Unit("600000.SH") != nil {
		t.Fatal("expected no unit registered for an unseen symbol on sell fill")
	}
}

func TestRouterFansClearAndEndToEveryUnit(t *testing.T) {
	dispatcher := newTestDispatcher()
	a := &recordingUnit{symbol: "A"}
	b := &recordingUnit{symbol: "B"}
	router := &Router{dispatcher: dispatcher, units: map[string]Unit{"A": a, "B": b}}
	dispatcher.Register(eventcore.KindClear, router.onClear)
	dispatcher.Register(eventcore.KindEnd, router.onEnd)

	clearEv, _ := eventcore.NewEvent(eventcore.KindClear, time.Now(), nil)
	dispatcher.Post(clearEv)
	if err := dispatcher.ProcessThrough(context.Background()); err != nil {
		t.Fatalf("ProcessThrough: %v", err)
	}

	if a.cleared != 1 || b.cleared != 1 {
		t.Fatalf("expected both units cleared, got a=%d b=%d", a.cleared, b.cleared)
	}

	endEv, _ := eventcore.NewEvent(eventcore.KindEnd, time.Now(), nil)
	dispatcher.Post(endEv)
	if err := dispatcher.ProcessThrough(context.Background()); err != nil {
		t.Fatalf("ProcessThrough: %v", err)
	}

	if a.ended != 1 || b.ended != 1 {
		t.Fatalf("expected both units ended, got a=%d b=%d", a.ended, b.ended)
	}
}
