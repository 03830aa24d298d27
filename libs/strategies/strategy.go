// Package strategies defines the pluggable strategy-unit interface the
// portfolio trades against, a registry of named strategy factories, and
// the per-symbol router that wires strategy units into the event
// dispatcher.
package strategies

import "jax-backtest-engine/libs/eventcore"

// Unit is one symbol's strategy instance: it consumes Price/Bar/Fill
// events and reacts to session boundaries (Clear/End), posting SignalInfo
// events back onto the dispatcher it was constructed with.
type Unit interface {
	Symbol() string
	OnPrice(eventcore.PriceInfo)
	OnBar(eventcore.BarInfo)
	OnFill(eventcore.FillInfo)
	OnClear()
	OnEnd()
}

// Factory constructs a new Unit for symbol, seeded from the fill that
// triggered its lazy registration (a buy-open fill on a symbol the router
// had not seen before).
type Factory func(symbol string, initFill eventcore.FillInfo, dispatcher *eventcore.Dispatcher) Unit
