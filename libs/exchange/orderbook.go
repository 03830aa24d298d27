// Package exchange implements per-symbol order matching: a price-priority
// order book per side, an exchange unit that crosses books on price moves,
// and a router that lazily constructs units and drives the calendar-day
// Clear/End lifecycle.
package exchange

import (
	"jax-backtest-engine/libs/eventcore"

	"github.com/shopspring/decimal"
)

// Book is a single side (bid or ask) of one symbol's order book: a
// price-priority queue that only accepts orders matching its own symbol
// and direction.
type Book struct {
	symbol    string
	direction eventcore.Direction
	queue     *eventcore.Queue[eventcore.OrderInfo]
}

// NewBook returns an empty book bound to symbol/direction.
func NewBook(symbol string, direction eventcore.Direction) *Book {
	return &Book{symbol: symbol, direction: direction, queue: eventcore.NewQueue[eventcore.OrderInfo]()}
}

// Len reports the number of resting orders.
func (b *Book) Len() int { return b.queue.Len() }

// Put accepts order only if it matches the book's symbol and direction;
// any mismatch is silently dropped, since a book is only ever reached
// through a unit that already routed by symbol and direction.
func (b *Book) Put(order eventcore.OrderInfo) {
	if order.Symbol != b.symbol || order.Direction != b.direction {
		return
	}
	b.queue.Put(order)
}

// Cancel removes every resting order whose ID matches id, via linear scan
// and PopAt. Returns the number removed.
func (b *Book) Cancel(id string) int {
	removed := 0
	for {
		idx := -1
		for i, o := range b.queue.Snapshot() {
			if o.ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return removed
		}
		if _, err := b.queue.PopAt(idx); err != nil {
			return removed
		}
		removed++
	}
}

// Cross repeatedly pops the top of book while it is still marketable
// against referencePrice: for a bid book while top.price >= reference,
// for an ask book while top.price <= reference. It returns the filled
// orders in pop order (best price, earliest timestamp first).
func (b *Book) Cross(referencePrice decimal.Decimal) []eventcore.OrderInfo {
	var filled []eventcore.OrderInfo
	for {
		top, err := b.queue.Peek()
		if err != nil {
			return filled
		}
		marketable := top.Price.GreaterThanOrEqual(referencePrice)
		if b.direction == eventcore.Sell {
			marketable = top.Price.LessThanOrEqual(referencePrice)
		}
		if !marketable {
			return filled
		}
		popped, err := b.queue.Pop()
		if err != nil {
			return filled
		}
		filled = append(filled, popped)
	}
}

// Clear drops every resting order.
func (b *Book) Clear() { b.queue.Clear() }
