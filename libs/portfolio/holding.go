// Package portfolio implements position accounting, cash/share/debt
// bookkeeping, signal-to-order translation and the buy-signal queue: the
// router that turns strategy signals into exchange orders and exchange
// fills into position and cash updates.
package portfolio

import (
	"jax-backtest-engine/libs/eventcore"
	"jax-backtest-engine/libs/money"

	"github.com/shopspring/decimal"
)

// Contract describes the currency and contract multiplier a symbol trades
// under. Every symbol the portfolio ever holds must resolve to one via the
// ContractLookup passed to NewRouter; it plays the role the Python
// original hard-wired per HoldingUnit construction (currency_, multiplier_
// constructor defaults).
type Contract struct {
	Currency   money.Currency
	Multiplier decimal.Decimal
}

// Holding tracks one symbol's position: signed volume, the VWAP-style
// average open price, and the last observed price.
type Holding struct {
	Symbol   string
	Contract Contract
	Volume   decimal.Decimal
	OpenPrice decimal.Decimal
	CurrentPrice decimal.Decimal
}

// NewHolding returns a flat (zero-volume) holding for symbol.
func NewHolding(symbol string, contract Contract) *Holding {
	return &Holding{Symbol: symbol, Contract: contract}
}

// OnPrice refreshes the last observed price used for valuation.
func (h *Holding) OnPrice(p eventcore.PriceInfo) {
	h.CurrentPrice = p.Current
}

// OnFill applies a fill's signed volume to the position and recomputes the
// average open price VWAP-style; a fill that flattens the position resets
// the open price to zero rather than leaving a stale value behind.
func (h *Holding) OnFill(f eventcore.FillInfo) {
	signedFillVolume := f.Volume.Mul(decimal.NewFromInt(int64(f.Direction)))
	newVolume := h.Volume.Add(signedFillVolume)
	if newVolume.IsZero() {
		h.OpenPrice = decimal.Zero
	} else {
		numerator := h.OpenPrice.Mul(h.Volume).Add(f.FilledPrice.Mul(signedFillVolume))
		h.OpenPrice = numerator.Div(newVolume)
	}
	h.Volume = newVolume
	h.CurrentPrice = f.FilledPrice
}

// CurrentValue converts the mark-to-market value of the position (price x
// volume x multiplier, in the holding's own currency) into table's
// reference currency.
func (h *Holding) CurrentValue(table *money.Table) (decimal.Decimal, error) {
	native := h.CurrentPrice.Mul(h.Volume).Mul(h.multiplierOrOne())
	if native.IsZero() {
		return decimal.Zero, nil
	}
	return table.SellToReference(h.Contract.Currency, native)
}

// VolumeToAmount returns the native-currency budget required to trade
// volume shares at price. direction is accepted for symmetry with the
// Python original's bid/ask fee schedule; this port does not model
// commissions or stamp duty, so it is currently unused.
func (h *Holding) VolumeToAmount(volume, price decimal.Decimal, _ eventcore.Direction) decimal.Decimal {
	return volume.Mul(price).Mul(h.multiplierOrOne())
}

// AmountToVolume is the inverse of VolumeToAmount: the largest volume
// affordable with a native-currency budget at price.
func (h *Holding) AmountToVolume(amount, price decimal.Decimal, _ eventcore.Direction) decimal.Decimal {
	denom := price.Mul(h.multiplierOrOne())
	if denom.IsZero() {
		return decimal.Zero
	}
	return amount.Div(denom)
}

// VolumeToCashFlow returns the native-currency CashFlow a fill represents.
func (h *Holding) VolumeToCashFlow(table *money.Table, f eventcore.FillInfo) (money.CashFlow, error) {
	native := f.FilledPrice.Mul(f.Volume).Mul(h.multiplierOrOne())
	return money.NewCashFlow(table, h.Contract.Currency, native)
}

func (h *Holding) multiplierOrOne() decimal.Decimal {
	if h.Contract.Multiplier.IsZero() {
		return decimal.NewFromInt(1)
	}
	return h.Contract.Multiplier
}
