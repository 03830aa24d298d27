// Package wallet implements the portfolio's single cash ledger: an
// available balance plus per-(order, symbol) frozen slots that reserve
// budget against open buy orders.
package wallet

import (
	"sync"

	"jax-backtest-engine/libs/eventcore"
	"jax-backtest-engine/libs/money"

	"github.com/shopspring/decimal"
)

type slotKey struct {
	orderID string
	symbol  string
}

// Wallet holds the available balance and the frozen slots, all denominated
// in the FX table's reference currency.
type Wallet struct {
	mu        sync.Mutex
	table     *money.Table
	available decimal.Decimal
	frozen    map[slotKey]decimal.Decimal
}

// New returns an empty wallet against table.
func New(table *money.Table) *Wallet {
	return &Wallet{table: table, frozen: make(map[slotKey]decimal.Decimal)}
}

// Available returns the unfrozen reference-currency balance.
func (w *Wallet) Available() decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.available
}

// Total returns available plus every frozen slot: the reference-currency
// value the portfolio still owns, whether free or earmarked.
func (w *Wallet) Total() decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	total := w.available
	for _, v := range w.frozen {
		total = total.Add(v)
	}
	return total
}

// HasAvailable reports whether at least amount of reference-currency
// balance is free. Supplements the wallet with an explicit pre-check used
// by callers that would otherwise have to inspect Available() themselves.
func (w *Wallet) HasAvailable(amount decimal.Decimal) bool {
	return w.Available().GreaterThanOrEqual(amount)
}

// Input converts flow into the reference currency at the sell rate and
// credits it to available.
func (w *Wallet) Input(flow money.CashFlow) (decimal.Decimal, error) {
	refAmount, err := flow.ToReference(w.table)
	if err != nil {
		return decimal.Zero, err
	}
	w.mu.Lock()
	w.available = w.available.Add(refAmount)
	w.mu.Unlock()
	return refAmount, nil
}

// Output debits the reference-currency cost of amount units of ccy (at the
// buy rate) from available and returns a CashFlow in ccy, or ok=false if
// the required reference amount is not strictly positive and covered by
// available.
func (w *Wallet) Output(ccy money.Currency, amount decimal.Decimal) (money.CashFlow, bool, error) {
	refAmount, err := w.table.ReferenceToBuy(ccy, amount)
	if err != nil {
		return money.CashFlow{}, false, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !refAmount.IsPositive() || refAmount.GreaterThan(w.available) {
		return money.CashFlow{}, false, nil
	}
	w.available = w.available.Sub(refAmount)
	return money.CashFlow{Currency: ccy, Amount: amount}, true, nil
}

// Freeze converts amount (in ccy, at the sell rate) into the reference
// currency, moves it out of available, and holds it in the (orderID,
// symbol) slot. Callers check HasAvailable before calling; Freeze itself
// performs the transfer unconditionally.
func (w *Wallet) Freeze(orderID, symbol string, ccy money.Currency, amount decimal.Decimal) (decimal.Decimal, error) {
	refAmount, err := w.table.SellToReference(ccy, amount)
	if err != nil {
		return decimal.Zero, err
	}
	key := slotKey{orderID, symbol}
	w.mu.Lock()
	w.available = w.available.Sub(refAmount)
	w.frozen[key] = w.frozen[key].Add(refAmount)
	w.mu.Unlock()
	return refAmount, nil
}

// Release moves the (orderID, symbol) frozen slot's value back to
// available. A missing slot is a no-op.
func (w *Wallet) Release(orderID, symbol string) decimal.Decimal {
	key := slotKey{orderID, symbol}
	w.mu.Lock()
	defer w.mu.Unlock()
	amount, ok := w.frozen[key]
	if !ok {
		return decimal.Zero
	}
	w.available = w.available.Add(amount)
	delete(w.frozen, key)
	return amount
}

// ReleaseAll drains every frozen slot back to available.
func (w *Wallet) ReleaseAll() decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	total := decimal.Zero
	for key, amount := range w.frozen {
		total = total.Add(amount)
		delete(w.frozen, key)
	}
	w.available = w.available.Add(total)
	return total
}

// ProcessPartialFill applies a partially-filled fill's cash flow: if it is
// a buy against an existing frozen slot, the slot absorbs the cost
// directly; otherwise available moves by a x fill.Direction (a sell
// credits available, a buy with no slot debits it).
func (w *Wallet) ProcessPartialFill(fill eventcore.FillInfo, flow money.CashFlow) error {
	refAmount, err := flow.ToReference(w.table)
	if err != nil {
		return err
	}
	key := slotKey{fill.OrderID, fill.Symbol}
	w.mu.Lock()
	defer w.mu.Unlock()
	if fill.Direction == eventcore.Buy {
		if current, ok := w.frozen[key]; ok {
			w.frozen[key] = current.Sub(refAmount)
			return nil
		}
	}
	if fill.Direction == eventcore.Buy {
		w.available = w.available.Sub(refAmount)
	} else {
		w.available = w.available.Add(refAmount)
	}
	return nil
}

// ProcessFullFill applies a fully-filled fill's cash flow: a buy against an
// existing frozen slot releases the slot first (its estimate may differ
// from the realized fill price), then available moves by a x
// fill.Direction.
func (w *Wallet) ProcessFullFill(fill eventcore.FillInfo, flow money.CashFlow) error {
	refAmount, err := flow.ToReference(w.table)
	if err != nil {
		return err
	}
	if fill.Direction == eventcore.Buy {
		w.Release(fill.OrderID, fill.Symbol)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if fill.Direction == eventcore.Buy {
		w.available = w.available.Sub(refAmount)
	} else {
		w.available = w.available.Add(refAmount)
	}
	return nil
}
