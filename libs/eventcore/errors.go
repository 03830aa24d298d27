package eventcore

import "errors"

var (
	// ErrEmptyQueue is returned by Peek/Pop on an empty Queue.
	ErrEmptyQueue = errors.New("priority queue is empty")

	// ErrInvalidIndex is returned by PopAt when the index is out of range.
	ErrInvalidIndex = errors.New("priority queue index out of range")

	// ErrEventKindMismatch is returned when an Event envelope's kind does
	// not match the declared kind of the payload it wraps.
	ErrEventKindMismatch = errors.New("event kind does not match payload kind")

	// ErrDirectionMismatch is returned when comparing two OrderInfo values
	// on opposite sides of the book.
	ErrDirectionMismatch = errors.New("cannot compare orders with opposite directions")
)
