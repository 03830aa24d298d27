package exchange

import (
	"time"

	"jax-backtest-engine/libs/eventcore"

	"github.com/shopspring/decimal"
)

// TickFn advances the monotonic clock and returns the new timestamp. The
// exchange never invents time on its own; every Fill it posts is stamped
// by this single shared source so fills across symbols stay interleaved
// in a deterministic, strictly increasing order.
type TickFn func() time.Time

// Unit is the per-symbol exchange state machine: it tracks the last two
// observed prices, slices bars into price events, and crosses its order
// books whenever price moves in the matching direction.
type Unit struct {
	Symbol        string
	OffsetMode    eventcore.OffsetMode
	lastPrice     decimal.Decimal
	currentPrice  decimal.Decimal
	LastTimestamp time.Time
	lastBar       *eventcore.BarInfo
	bids          *Book
	asks          *Book
	tick          TickFn
	dispatcher    *eventcore.Dispatcher
}

// NewUnit constructs an exchange unit bound to symbol, posting any event
// it produces back through dispatcher and deriving Fill timestamps from
// tick.
func NewUnit(symbol string, mode eventcore.OffsetMode, tick TickFn, dispatcher *eventcore.Dispatcher) *Unit {
	return &Unit{
		Symbol:     symbol,
		OffsetMode: mode,
		bids:       NewBook(symbol, eventcore.Buy),
		asks:       NewBook(symbol, eventcore.Sell),
		tick:       tick,
		dispatcher: dispatcher,
	}
}

// OnBar records the bar, slices it into four Price events, and posts them.
func (u *Unit) OnBar(bar eventcore.BarInfo) {
	u.LastTimestamp = bar.Timestamp
	b := bar
	u.lastBar = &b
	for _, p := range eventcore.SliceBar(bar, u.OffsetMode) {
		ev, err := eventcore.NewEvent(eventcore.KindPrice, p.Timestamp, p)
		if err == nil {
			u.dispatcher.Post(ev)
		}
	}
}

// OnPrice rolls last/current price and crosses the book that a price move
// in this direction would make marketable.
func (u *Unit) OnPrice(p eventcore.PriceInfo) {
	u.LastTimestamp = p.Timestamp
	u.lastPrice = u.currentPrice
	u.currentPrice = p.Current
	u.cross()
}

func (u *Unit) cross() {
	if u.currentPrice.IsZero() {
		return
	}
	var filled []eventcore.OrderInfo
	switch {
	case u.currentPrice.LessThan(u.lastPrice):
		filled = u.bids.Cross(u.currentPrice)
	case u.currentPrice.GreaterThan(u.lastPrice):
		filled = u.asks.Cross(u.currentPrice)
	}
	for _, order := range filled {
		u.postFill(order, order.Price, order.Volume, false)
	}
}

// OnOrder routes an incoming order: if it is immediately marketable
// against the current price it fills at once, otherwise it rests in the
// matching book.
func (u *Unit) OnOrder(order eventcore.OrderInfo) {
	if !u.currentPrice.IsZero() && u.marketable(order) {
		u.postFill(order, order.Price, order.Volume, false)
		return
	}
	if order.Direction == eventcore.Buy {
		u.bids.Put(order)
	} else {
		u.asks.Put(order)
	}
}

func (u *Unit) marketable(order eventcore.OrderInfo) bool {
	if order.Direction == eventcore.Buy {
		return order.Price.GreaterThanOrEqual(u.currentPrice)
	}
	return order.Price.LessThanOrEqual(u.currentPrice)
}

func (u *Unit) postFill(order eventcore.OrderInfo, price, volume decimal.Decimal, partial bool) {
	ts := u.tick()
	fill := eventcore.FillInfo{
		OrderID:     order.ID,
		Symbol:      order.Symbol,
		Timestamp:   ts,
		Direction:   order.Direction,
		OpenClose:   order.OpenClose,
		FilledPrice: price,
		Volume:      volume,
		Partial:     partial,
	}
	ev, err := eventcore.NewEvent(eventcore.KindFill, ts, fill)
	if err == nil {
		u.dispatcher.Post(ev)
	}
}

// OnCancel routes to the book matching the cancel's direction and removes
// every resting order with the matching id.
func (u *Unit) OnCancel(c eventcore.CancelInfo) {
	if c.Direction == eventcore.Buy {
		u.bids.Cancel(c.OrderID)
	} else {
		u.asks.Cancel(c.OrderID)
	}
}

// CancelAll clears both books.
func (u *Unit) CancelAll() {
	u.bids.Clear()
	u.asks.Clear()
}
