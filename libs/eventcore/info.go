package eventcore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the buy/sell side of a signal, order, cancel, or fill.
type Direction int

const (
	Buy  Direction = 1
	Sell Direction = -1
)

func (d Direction) String() string {
	if d == Buy {
		return "买入"
	}
	return "卖出"
}

// OpenClose distinguishes opening a position from closing one.
type OpenClose int

const (
	Open  OpenClose = 1
	Close OpenClose = -1
)

func (oc OpenClose) String() string {
	if oc == Open {
		return "开仓"
	}
	return "平仓"
}

// SignalType is a strategy's liveness policy for a trade intention.
type SignalType string

const (
	SignalFOK SignalType = "FOK"
	SignalIOC SignalType = "IOC"
	SignalFOW SignalType = "FOW"
	SignalTBF SignalType = "TBF"
)

// signalPriority ranks signal types for the buy-signal queue; higher pops
// first. TBF pops before FOW before IOC before FOK.
var signalPriority = map[SignalType]int{
	SignalFOK: 10,
	SignalIOC: 20,
	SignalFOW: 30,
	SignalTBF: 40,
}

// OrderType is the exchange-facing liveness policy of an order.
type OrderType string

const (
	OrderFOK OrderType = "FOK"
	OrderIOC OrderType = "IOC"
	OrderTBF OrderType = "TBF"
	OrderGFD OrderType = "GFD"
)

// SignalTypeToOrderType implements the portfolio's fixed signal->order
// mapping: FOK->FOK, IOC->IOC, FOW->TBF, TBF->TBF.
func SignalTypeToOrderType(s SignalType) OrderType {
	switch s {
	case SignalFOK:
		return OrderFOK
	case SignalIOC:
		return OrderIOC
	case SignalFOW, SignalTBF:
		return OrderTBF
	default:
		return OrderGFD
	}
}

func money2(d decimal.Decimal) string { return d.StringFixed(2) }

// ─── BarInfo ──────────────────────────────────────────────────────────────

type BarInfo struct {
	Symbol    string
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	Turnover  decimal.Decimal
}

func (BarInfo) Kind() Kind { return KindBar }

func (b BarInfo) CSV() string {
	return fmt.Sprintf("%s,%s,%s,%s,%s,%s,%s",
		b.Symbol, money2(b.Open), money2(b.High), money2(b.Low), money2(b.Close),
		money2(b.Volume), money2(b.Turnover))
}

// ─── PriceInfo ────────────────────────────────────────────────────────────

type PriceInfo struct {
	Symbol    string
	Timestamp time.Time
	Current   decimal.Decimal
	Last      *decimal.Decimal
	Volume    *decimal.Decimal
}

func (PriceInfo) Kind() Kind { return KindPrice }

func (p PriceInfo) CSV() string {
	last := ""
	if p.Last != nil {
		last = money2(*p.Last)
	}
	vol := ""
	if p.Volume != nil {
		vol = money2(*p.Volume)
	}
	return fmt.Sprintf("%s,%s,%s,%s", p.Symbol, money2(p.Current), last, vol)
}

// ─── SignalInfo ───────────────────────────────────────────────────────────

type SignalInfo struct {
	ID          string
	Symbol      string
	Timestamp   time.Time
	Direction   Direction
	OpenClose   OpenClose
	Price       decimal.Decimal
	Volume      decimal.Decimal
	Amount      decimal.Decimal
	Currency    string
	SignalType_ SignalType
}

func (SignalInfo) Kind() Kind { return KindSignal }

func (s SignalInfo) CSV() string {
	return fmt.Sprintf("%s,%s,%s,%s,%s,%s,%s,%s,%s",
		s.Symbol, s.Direction, s.OpenClose, money2(s.Price), money2(s.Volume),
		money2(s.Amount), s.Currency, s.SignalType_, s.ID)
}

// GreaterThan orders the buy-signal queue by signal type (TBF pops first,
// then FOW, IOC, FOK), tie-broken toward the smaller budget.
func (s SignalInfo) GreaterThan(other SignalInfo) bool {
	sp, op := signalPriority[s.SignalType_], signalPriority[other.SignalType_]
	if sp != op {
		return sp > op
	}
	return s.Amount.LessThan(other.Amount)
}

// ─── OrderInfo ────────────────────────────────────────────────────────────

type OrderInfo struct {
	ID        string
	Symbol    string
	Timestamp time.Time
	Direction Direction
	OpenClose OpenClose
	Price     decimal.Decimal
	Volume    decimal.Decimal
	OrderType OrderType
}

func (OrderInfo) Kind() Kind { return KindOrder }

func (o OrderInfo) CSV() string {
	return fmt.Sprintf("%s,%s,%s,%s,%s,%s,%s",
		o.ID, o.Symbol, o.Direction, o.OpenClose, money2(o.Price), money2(o.Volume), o.OrderType)
}

// Compare orders buy orders by higher price first, sell orders by lower
// price first, and ties by earlier timestamp. Comparing orders on opposite
// sides is an error: a single order book side never needs it, since Put
// rejects a direction mismatch before an order ever reaches the heap.
func (o OrderInfo) Compare(other OrderInfo) (bool, error) {
	if o.Direction != other.Direction {
		return false, fmt.Errorf("%w: %v vs %v", ErrDirectionMismatch, o.Direction, other.Direction)
	}
	if o.Price.Equal(other.Price) {
		return o.Timestamp.Before(other.Timestamp), nil
	}
	if o.Direction == Buy {
		return o.Price.GreaterThan(other.Price), nil
	}
	return o.Price.LessThan(other.Price), nil
}

// GreaterThan satisfies Ranked for Queue[OrderInfo]. Order books only ever
// hold same-direction orders, so the error path of Compare is unreachable
// in normal operation; it falls back to timestamp order defensively rather
// than panicking inside heap maintenance.
func (o OrderInfo) GreaterThan(other OrderInfo) bool {
	greater, err := o.Compare(other)
	if err != nil {
		return o.Timestamp.Before(other.Timestamp)
	}
	return greater
}

// ─── CancelInfo ───────────────────────────────────────────────────────────

type CancelInfo struct {
	OrderID   string
	Symbol    string
	Timestamp time.Time
	Direction Direction
}

func (CancelInfo) Kind() Kind { return KindCancel }

func (c CancelInfo) CSV() string {
	return fmt.Sprintf("%s,%s,%s", c.OrderID, c.Symbol, c.Direction)
}

// ─── FillInfo ─────────────────────────────────────────────────────────────

type FillInfo struct {
	OrderID      string
	Symbol       string
	Timestamp    time.Time
	Direction    Direction
	OpenClose    OpenClose
	FilledPrice  decimal.Decimal
	Volume       decimal.Decimal
	Partial      bool
}

func (FillInfo) Kind() Kind { return KindFill }

func (f FillInfo) CSV() string {
	partial := ""
	if f.Partial {
		partial = "partial"
	}
	return fmt.Sprintf("%s,%s,%s,%s,%s,%s,%s",
		f.OrderID, f.Symbol, f.Direction, f.OpenClose, money2(f.FilledPrice), money2(f.Volume), partial)
}
