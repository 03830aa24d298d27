package money

import "errors"

var (
	// ErrInvalidCurrency is returned when a currency code is not registered
	// in the FX table at the point a CashFlow or conversion is constructed.
	ErrInvalidCurrency = errors.New("currency not registered in fx table")

	// ErrInvalidAmount is returned when a CashFlow is constructed with a
	// negative amount.
	ErrInvalidAmount = errors.New("cash flow amount must be non-negative")
)
