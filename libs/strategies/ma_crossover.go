package strategies

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"jax-backtest-engine/libs/eventcore"
	"jax-backtest-engine/libs/ledger"
)

// MAHeader is the strategy-log column header an MACrossoverUnit writes to
// its Store on every Clear: current price, both moving averages, and the
// direction the crossover last signalled.
var MAHeader = []string{"symbol", "crt_price", "short_ma", "long_ma", "crt_direction"}

// MACrossoverUnit trades a short/long simple-moving-average crossover: it
// posts a half-volume Signal the first time it activates, and a
// full-volume Signal on every sign change of short_ma - long_ma afterward.
type MACrossoverUnit struct {
	symbol     string
	currency   string
	dispatcher *eventcore.Dispatcher
	log        *ledger.Store

	short, long int
	prices      []decimal.Decimal
	idx         int
	shortSum    decimal.Decimal
	longSum     decimal.Decimal
	active      bool

	volume        decimal.Decimal
	currentPrice  decimal.Decimal
	lastDirection int
}

// NewMACrossoverFactory returns a Factory that builds an MACrossoverUnit
// seeded from the triggering buy-open fill's volume, trading in currency,
// logging its moving averages through log (nil disables logging).
func NewMACrossoverFactory(short, long int, currency string, log *ledger.Store) Factory {
	return func(symbol string, initFill eventcore.FillInfo, dispatcher *eventcore.Dispatcher) Unit {
		return &MACrossoverUnit{
			symbol:     symbol,
			currency:   currency,
			dispatcher: dispatcher,
			log:        log,
			short:      short,
			long:       long,
			prices:     make([]decimal.Decimal, long),
			volume:     initFill.Volume,
		}
	}
}

func (u *MACrossoverUnit) Symbol() string { return u.symbol }

// updatePrice rolls price into a ring buffer sized to the long period; the
// short window is the trailing `short` slots of the same buffer.
func (u *MACrossoverUnit) updatePrice(price decimal.Decimal) {
	lastLong := u.prices[u.idx]
	shortIdx := (u.idx + u.long - u.short) % u.long
	lastShort := u.prices[shortIdx]

	u.prices[u.idx] = price
	u.longSum = u.longSum.Sub(lastLong).Add(price)
	u.shortSum = u.shortSum.Sub(lastShort).Add(price)
	u.idx = (u.idx + 1) % u.long

	if u.idx == 0 {
		u.active = true
	}
}

func (u *MACrossoverUnit) OnPrice(price eventcore.PriceInfo) {
	u.currentPrice = price.Current
	u.updatePrice(price.Current)

	if !u.active {
		return
	}

	shortMA := u.shortSum.Div(decimal.NewFromInt(int64(u.short)))
	longMA := u.longSum.Div(decimal.NewFromInt(int64(u.long)))
	direction := -1
	if shortMA.GreaterThanOrEqual(longMA) {
		direction = 1
	}

	switch {
	case u.lastDirection == 0:
		u.postSignal(price, direction, u.volume.Div(decimal.NewFromInt(2)))
	case (u.lastDirection < 0) != (direction < 0):
		u.postSignal(price, direction, u.volume)
	}

	u.lastDirection = direction
}

func (u *MACrossoverUnit) postSignal(price eventcore.PriceInfo, direction int, volume decimal.Decimal) {
	dir, oc := eventcore.Sell, eventcore.Close
	if direction > 0 {
		dir, oc = eventcore.Buy, eventcore.Open
	}

	signal := eventcore.SignalInfo{
		ID:          uuid.NewString(),
		Symbol:      u.symbol,
		Timestamp:   price.Timestamp,
		Direction:   dir,
		OpenClose:   oc,
		Price:       u.currentPrice,
		Volume:      volume,
		Amount:      u.currentPrice.Mul(volume),
		Currency:    u.currency,
		SignalType_: eventcore.SignalTBF,
	}
	ev, err := eventcore.NewEvent(eventcore.KindSignal, price.Timestamp, signal)
	if err != nil {
		return
	}
	u.dispatcher.Post(ev)
}

func (u *MACrossoverUnit) OnBar(eventcore.BarInfo) {}

func (u *MACrossoverUnit) OnFill(eventcore.FillInfo) {}

func (u *MACrossoverUnit) OnClear() {
	if u.log == nil || !u.active {
		return
	}
	shortMA := u.shortSum.Div(decimal.NewFromInt(int64(u.short))).Round(4)
	longMA := u.longSum.Div(decimal.NewFromInt(int64(u.long))).Round(4)
	_ = u.log.Append(
		u.symbol,
		u.currentPrice.StringFixed(2),
		shortMA.String(),
		longMA.String(),
		fmt.Sprintf("%+d", u.lastDirection),
	)
}

func (u *MACrossoverUnit) OnEnd() {}
