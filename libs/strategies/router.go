package strategies

import (
	"jax-backtest-engine/libs/eventcore"
)

// Router owns every symbol's strategy Unit and fans dispatcher events out
// to them. A unit is not created until its symbol first appears in a
// buy-open fill — mirroring the way a trader only starts reasoning about a
// symbol once a position in it actually exists.
type Router struct {
	factory    Factory
	dispatcher *eventcore.Dispatcher
	units      map[string]Unit
}

// NewRouter builds a router for the given strategy factory and registers
// its handlers on dispatcher.
func NewRouter(factory Factory, dispatcher *eventcore.Dispatcher) *Router {
	r := &Router{
		factory:    factory,
		dispatcher: dispatcher,
		units:      make(map[string]Unit),
	}

	dispatcher.Register(eventcore.KindPrice, r.onPrice)
	dispatcher.Register(eventcore.KindBar, r.onBar)
	dispatcher.Register(eventcore.KindFill, r.onFill)
	dispatcher.Register(eventcore.KindClear, r.onClear)
	dispatcher.Register(eventcore.KindEnd, r.onEnd)

	return r
}

// Unit returns the strategy unit for symbol, or nil if none has been
// registered yet.
func (r *Router) Unit(symbol string) Unit {
	return r.units[symbol]
}

func (r *Router) onPrice(e eventcore.Event) {
	price, ok := e.Payload.(eventcore.PriceInfo)
	if !ok {
		return
	}
	if unit, known := r.units[price.Symbol]; known {
		unit.OnPrice(price)
	}
}

func (r *Router) onBar(e eventcore.Event) {
	bar, ok := e.Payload.(eventcore.BarInfo)
	if !ok {
		return
	}
	if unit, known := r.units[bar.Symbol]; known {
		unit.OnBar(bar)
	}
}

// onFill lazily registers a new strategy unit the first time its symbol
// appears in a buy-open fill, then always routes the fill to the unit.
func (r *Router) onFill(e eventcore.Event) {
	fill, ok := e.Payload.(eventcore.FillInfo)
	if !ok {
		return
	}

	unit, known := r.units[fill.Symbol]
	if !known {
		if fill.Direction != eventcore.Buy || fill.OpenClose != eventcore.Open {
			return
		}
		if r.factory == nil {
			return
		}
		unit = r.factory(fill.Symbol, fill, r.dispatcher)
		if unit == nil {
			return
		}
		r.units[fill.Symbol] = unit
	}

	unit.OnFill(fill)
}

func (r *Router) onClear(eventcore.Event) {
	for _, unit := range r.units {
		unit.OnClear()
	}
}

func (r *Router) onEnd(eventcore.Event) {
	for _, unit := range r.units {
		unit.OnEnd()
	}
}
