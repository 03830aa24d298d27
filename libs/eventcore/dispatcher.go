package eventcore

import (
	"context"
	"reflect"
	"time"

	"jax-backtest-engine/libs/observability"
)

// Handler consumes one dispatched Event. It must return without blocking on
// external I/O; any event it produces is posted back onto the dispatcher's
// queue and processed on a later step, never inline.
type Handler func(Event)

// Clock supplies the dispatcher's notion of wall-clock "now" for the log
// record only — it never influences simulated time, which advances solely
// through posted Event timestamps and the monotonic tick.
type Clock interface {
	Now() time.Time
}

// Dispatcher holds the shared priority queue and the kind -> handlers
// mapping that drives a run. It is the single owner of the call stack:
// handlers run to completion before the next event is popped.
type Dispatcher struct {
	queue      *Queue[Event]
	handlers   map[Kind][]Handler
	identities map[Kind]map[uintptr]bool
	logged     map[Kind]bool
	clock      Clock
	endAt      time.Time
	index      int
}

// NewDispatcher builds a dispatcher with the default Price-only log filter
// and installs the overridable Default/End handlers: Default posts the End
// event at the configured end-of-time, End is a no-op terminal marker.
func NewDispatcher(clock Clock, endOfTime time.Time) *Dispatcher {
	d := &Dispatcher{
		queue:      NewQueue[Event](),
		handlers:   make(map[Kind][]Handler),
		identities: make(map[Kind]map[uintptr]bool),
		logged:     map[Kind]bool{KindPrice: true},
		clock:      clock,
		endAt:      endOfTime,
	}
	d.Register(KindDefault, func(Event) {
		ev, err := NewEvent(KindEnd, d.endAt, nil)
		if err == nil {
			d.Post(ev)
		}
	})
	d.Register(KindEnd, func(Event) {})
	return d
}

// Register appends handler to kind's ordered list, skipping it if an
// identical function value (by pointer identity) is already registered.
func (d *Dispatcher) Register(kind Kind, handler Handler) {
	id := reflect.ValueOf(handler).Pointer()
	if d.identities[kind] == nil {
		d.identities[kind] = make(map[uintptr]bool)
	}
	if d.identities[kind][id] {
		return
	}
	d.identities[kind][id] = true
	d.handlers[kind] = append(d.handlers[kind], handler)
}

// Post inserts ev into the shared queue.
func (d *Dispatcher) Post(ev Event) {
	d.queue.Put(ev)
}

// Len reports the number of queued, not-yet-dispatched events.
func (d *Dispatcher) Len() int {
	return d.queue.Len()
}

// ProcessNext pops the single highest-priority event, logs it unless its
// kind is filtered (Price by default), and invokes every registered
// handler for that kind in registration order. Returns ErrEmptyQueue if
// the queue holds nothing.
func (d *Dispatcher) ProcessNext(ctx context.Context) (Event, error) {
	ev, err := d.queue.Pop()
	if err != nil {
		return Event{}, err
	}
	if !d.logged[ev.EventKind] {
		observability.LogEvent(ctx, "info", "event_dispatched", map[string]any{
			"index":      d.index,
			"kind":       string(ev.EventKind),
			"wall_clock": d.clock.Now().Format(time.RFC3339),
			"timestamp":  ev.Timestamp.Format(time.RFC3339),
			"event":      ev.String(),
		})
	}
	d.index++
	for _, h := range d.handlers[ev.EventKind] {
		h(ev)
	}
	return ev, nil
}

// ProcessThrough drains the queue by repeated ProcessNext calls.
func (d *Dispatcher) ProcessThrough(ctx context.Context) error {
	for d.queue.Len() > 0 {
		if _, err := d.ProcessNext(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Run drives a full backtest. If feed yields events, each is posted and
// drained via ProcessThrough in turn. Once feed is exhausted (or nil), a
// single Default event is posted and drained, whose installed handler
// posts the final End event at the configured end-of-time.
func (d *Dispatcher) Run(ctx context.Context, feed func() (Event, bool)) error {
	if feed != nil {
		for {
			ev, ok := feed()
			if !ok {
				break
			}
			d.Post(ev)
			if err := d.ProcessThrough(ctx); err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
	def, err := NewEvent(KindDefault, d.endAt, nil)
	if err != nil {
		return err
	}
	d.Post(def)
	return d.ProcessThrough(ctx)
}

// RunUntil processes events while the queue is non-empty and the next
// event's timestamp does not exceed t.
func (d *Dispatcher) RunUntil(ctx context.Context, t time.Time) error {
	for {
		ev, err := d.queue.Peek()
		if err != nil {
			return nil
		}
		if ev.Timestamp.After(t) {
			return nil
		}
		if _, err := d.ProcessNext(ctx); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
