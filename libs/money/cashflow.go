package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CashFlow is a (currency, non-negative amount) value. It can only be
// constructed against a Table that already knows the currency.
type CashFlow struct {
	Currency Currency
	Amount   decimal.Decimal
}

// NewCashFlow validates amount and currency against table and returns a
// CashFlow, or ErrInvalidAmount / ErrInvalidCurrency.
func NewCashFlow(table *Table, ccy Currency, amount decimal.Decimal) (CashFlow, error) {
	if amount.IsNegative() {
		return CashFlow{}, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if !table.IsValidCurrency(ccy) {
		return CashFlow{}, fmt.Errorf("%w: %s", ErrInvalidCurrency, ccy)
	}
	return CashFlow{Currency: ccy, Amount: amount}, nil
}

// ToReference converts the cash flow into the table's reference currency
// using the sell rate, for comparison purposes.
func (c CashFlow) ToReference(table *Table) (decimal.Decimal, error) {
	return table.SellToReference(c.Currency, c.Amount)
}

// Exchange converts a cash flow into a different currency, expressed as a
// round trip through the reference currency (sell then buy).
func Exchange(table *Table, flow CashFlow, into Currency) (CashFlow, error) {
	refAmount, err := table.SellToReference(flow.Currency, flow.Amount)
	if err != nil {
		return CashFlow{}, err
	}
	converted, err := table.BuyWithReference(into, refAmount)
	if err != nil {
		return CashFlow{}, err
	}
	return NewCashFlow(table, into, converted)
}
