// Package money holds the currency, cash-flow, and FX-conversion value types
// shared by the wallet, holding, and exchange packages. Amounts are
// shopspring/decimal rather than float64 so that rounding to the 2- and
// 4-decimal conventions the portfolio log requires is exact.
package money

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Currency is an opaque code interpreted against a Table.
type Currency string

const twoDP = 2

// Table is a process-wide mapping currency -> (buy-rate, sell-rate) against
// a single reference currency. Both rates for the reference currency itself
// are 1. Rates are expected to be set once at configuration time and read
// many times during a run; Table is safe for concurrent reads while a run's
// historical-data loading happens in parallel (see libs/ingest), even though
// the simulation core itself is single-threaded.
type Table struct {
	mu  sync.RWMutex
	ref Currency
	// fromRef[ccy] is the rate for buying one unit of the reference
	// currency's worth of ccy: ccyAmount = refAmount * fromRef[ccy].
	fromRef map[Currency]decimal.Decimal
	// toRef[ccy] is the rate for selling ccy into the reference currency:
	// refAmount = ccyAmount * toRef[ccy].
	toRef map[Currency]decimal.Decimal
}

// NewTable creates an FX table whose reference currency has both rates
// fixed at 1.
func NewTable(reference Currency) *Table {
	t := &Table{
		ref:     reference,
		fromRef: make(map[Currency]decimal.Decimal),
		toRef:   make(map[Currency]decimal.Decimal),
	}
	one := decimal.NewFromInt(1)
	t.fromRef[reference] = one
	t.toRef[reference] = one
	return t
}

// Reference returns the table's reference currency.
func (t *Table) Reference() Currency {
	return t.ref
}

// SetRate registers (or overwrites) the buy/sell rates for a non-reference
// currency.
func (t *Table) SetRate(ccy Currency, fromRefRate, toRefRate decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fromRef[ccy] = fromRefRate
	t.toRef[ccy] = toRefRate
}

// IsValidCurrency reports whether ccy has a registered rate.
func (t *Table) IsValidCurrency(ccy Currency) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.fromRef[ccy]
	return ok
}

func (t *Table) rates(ccy Currency) (fromRefRate, toRefRate decimal.Decimal, err error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	fromRefRate, ok := t.fromRef[ccy]
	if !ok {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidCurrency, ccy)
	}
	toRefRate = t.toRef[ccy]
	return fromRefRate, toRefRate, nil
}

// BuyWithReference converts an amount of the reference currency into ccy
// at the buy rate: ccyAmount = refAmount * fromRef[ccy].
func (t *Table) BuyWithReference(ccy Currency, refAmount decimal.Decimal) (decimal.Decimal, error) {
	fromRefRate, _, err := t.rates(ccy)
	if err != nil {
		return decimal.Zero, err
	}
	return refAmount.Mul(fromRefRate).Round(twoDP), nil
}

// ReferenceToBuy is the inverse of BuyWithReference: how much reference
// currency is required to buy ccyAmount of ccy.
func (t *Table) ReferenceToBuy(ccy Currency, ccyAmount decimal.Decimal) (decimal.Decimal, error) {
	fromRefRate, _, err := t.rates(ccy)
	if err != nil {
		return decimal.Zero, err
	}
	if fromRefRate.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: %s has a zero buy rate", ErrInvalidCurrency, ccy)
	}
	return ccyAmount.Div(fromRefRate).Round(twoDP), nil
}

// SellToReference converts ccyAmount of ccy into the reference currency at
// the sell rate: refAmount = ccyAmount * toRef[ccy].
func (t *Table) SellToReference(ccy Currency, ccyAmount decimal.Decimal) (decimal.Decimal, error) {
	_, toRefRate, err := t.rates(ccy)
	if err != nil {
		return decimal.Zero, err
	}
	return ccyAmount.Mul(toRefRate).Round(twoDP), nil
}

// ReferenceFromSell is the inverse of SellToReference: how much ccy must be
// sold to realize refAmount of the reference currency.
func (t *Table) ReferenceFromSell(ccy Currency, refAmount decimal.Decimal) (decimal.Decimal, error) {
	_, toRefRate, err := t.rates(ccy)
	if err != nil {
		return decimal.Zero, err
	}
	if toRefRate.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: %s has a zero sell rate", ErrInvalidCurrency, ccy)
	}
	return refAmount.Div(toRefRate).Round(twoDP), nil
}
