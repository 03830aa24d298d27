package eventcore

import "time"

// Kind tags an Event envelope and, for all but the payload-less kinds,
// must match the wrapped Info's own Kind().
type Kind string

const (
	KindDefault Kind = "Default"
	KindBar     Kind = "Bar"
	KindPrice   Kind = "Price"
	KindCancel  Kind = "Cancel"
	KindFill    Kind = "Fill"
	KindOrder   Kind = "Order"
	KindSignal  Kind = "Signal"
	KindClear   Kind = "Clear"
	KindEnd     Kind = "End"
)

// priority ranks event kinds for dispatch order; higher fires first.
var priority = map[Kind]int{
	KindDefault: -1,
	KindBar:     10,
	KindPrice:   20,
	KindCancel:  30,
	KindFill:    40,
	KindOrder:   50,
	KindSignal:  60,
	KindClear:   70,
	KindEnd:     80,
}

// Priority returns the dispatch priority of a kind. Unknown kinds rank
// below Default so a typo never silently preempts real events.
func Priority(k Kind) int {
	if p, ok := priority[k]; ok {
		return p
	}
	return priority[KindDefault] - 1
}

// payloadless is the set of kinds that carry no Info payload.
var payloadless = map[Kind]bool{
	KindDefault: true,
	KindClear:   true,
	KindEnd:     true,
}

// Info is implemented by every payload type (BarInfo, PriceInfo, SignalInfo,
// OrderInfo, CancelInfo, FillInfo). Kind identifies which envelope kind the
// payload is valid under.
type Info interface {
	Kind() Kind
}

// Event is the envelope every component posts to the shared queue:
// a kind, a timestamp, and (for non-payload-less kinds) a typed Info.
type Event struct {
	EventKind Kind
	Timestamp time.Time
	Payload   Info
}

// NewEvent validates the kind/payload pairing and returns an Event, or
// ErrEventKindMismatch if payload is nil for a kind that requires one, or
// its declared Kind() disagrees with kind.
func NewEvent(kind Kind, timestamp time.Time, payload Info) (Event, error) {
	if payloadless[kind] {
		return Event{EventKind: kind, Timestamp: timestamp}, nil
	}
	if payload == nil || payload.Kind() != kind {
		return Event{}, ErrEventKindMismatch
	}
	return Event{EventKind: kind, Timestamp: timestamp, Payload: payload}, nil
}

// GreaterThan implements Ranked: higher priority wins; ties break toward
// the earlier timestamp, so process_next always returns events in
// (priority desc, timestamp asc) order regardless of insertion order.
func (e Event) GreaterThan(other Event) bool {
	pe, po := Priority(e.EventKind), Priority(other.EventKind)
	if pe != po {
		return pe > po
	}
	return e.Timestamp.Before(other.Timestamp)
}

// String renders the event the way the log record stream does:
// "timestamp,kind,<payload>".
func (e Event) String() string {
	body := "NULL"
	if e.Payload != nil {
		if s, ok := e.Payload.(interface{ CSV() string }); ok {
			body = s.CSV()
		}
	}
	return e.Timestamp.Format(time.RFC3339) + "," + string(e.EventKind) + "," + body
}
