package exchange

import (
	"time"

	"jax-backtest-engine/libs/eventcore"
)

// dayChangeLead is how far past the router's last seen Bar/Price timestamp
// it inserts a Clear event once a Bar crosses into a new calendar day.
const dayChangeLead = 59 * time.Minute

// endClearLead is how far past the router's last seen Bar/Price timestamp
// it inserts the terminal Clear event once an End event is seen.
const endClearLead = 60 * time.Minute

// Router maintains symbol -> Unit and drives the calendar-day Clear/End
// lifecycle shared by every unit. It registers itself on the dispatcher
// for Bar, Price, Order, Cancel, Clear and End.
type Router struct {
	dispatcher    *eventcore.Dispatcher
	mode          eventcore.OffsetMode
	tick          TickFn
	units         map[string]*Unit
	lastTimestamp time.Time
}

// NewRouter builds a router and registers its handlers on dispatcher.
func NewRouter(dispatcher *eventcore.Dispatcher, mode eventcore.OffsetMode, tick TickFn) *Router {
	r := &Router{
		dispatcher: dispatcher,
		mode:       mode,
		tick:       tick,
		units:      make(map[string]*Unit),
	}
	dispatcher.Register(eventcore.KindBar, r.onBar)
	dispatcher.Register(eventcore.KindPrice, r.onPrice)
	dispatcher.Register(eventcore.KindOrder, r.onOrder)
	dispatcher.Register(eventcore.KindCancel, r.onCancel)
	dispatcher.Register(eventcore.KindClear, r.onClear)
	dispatcher.Register(eventcore.KindEnd, r.onEnd)
	return r
}

// Unit returns the unit for symbol, constructing it lazily if unseen.
func (r *Router) Unit(symbol string) *Unit {
	u, ok := r.units[symbol]
	if !ok {
		u = NewUnit(symbol, r.mode, r.tick, r.dispatcher)
		r.units[symbol] = u
	}
	return u
}

func (r *Router) onBar(ev eventcore.Event) {
	bar, ok := ev.Payload.(eventcore.BarInfo)
	if !ok {
		return
	}
	if !r.lastTimestamp.IsZero() && calendarDay(bar.Timestamp) != calendarDay(r.lastTimestamp) {
		clearEv, err := eventcore.NewEvent(eventcore.KindClear, r.lastTimestamp.Add(dayChangeLead), nil)
		if err == nil {
			r.dispatcher.Post(clearEv)
		}
	}
	r.lastTimestamp = bar.Timestamp
	r.Unit(bar.Symbol).OnBar(bar)
}

func (r *Router) onPrice(ev eventcore.Event) {
	p, ok := ev.Payload.(eventcore.PriceInfo)
	if !ok {
		return
	}
	r.lastTimestamp = p.Timestamp
	r.Unit(p.Symbol).OnPrice(p)
}

func (r *Router) onOrder(ev eventcore.Event) {
	order, ok := ev.Payload.(eventcore.OrderInfo)
	if !ok {
		return
	}
	r.Unit(order.Symbol).OnOrder(order)
}

func (r *Router) onCancel(ev eventcore.Event) {
	c, ok := ev.Payload.(eventcore.CancelInfo)
	if !ok {
		return
	}
	r.Unit(c.Symbol).OnCancel(c)
}

func (r *Router) onClear(eventcore.Event) {
	// Clear is a no-op for exchange units by default; cancel_all is an
	// explicit operation, not implicitly bound to Clear.
}

func (r *Router) onEnd(eventcore.Event) {
	clearEv, err := eventcore.NewEvent(eventcore.KindClear, r.lastTimestamp.Add(endClearLead), nil)
	if err == nil {
		r.dispatcher.Post(clearEv)
	}
}

func calendarDay(t time.Time) (int, time.Month, int) {
	y, m, d := t.Date()
	return y, m, d
}
