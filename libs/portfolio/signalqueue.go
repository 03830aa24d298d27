package portfolio

import "jax-backtest-engine/libs/eventcore"

// BuySignalQueue holds pending buy-direction SignalInfo events waiting on
// cash, ordered by SignalInfo.GreaterThan (signal type, then smaller
// budget first).
type BuySignalQueue struct {
	q *eventcore.Queue[eventcore.SignalInfo]
}

// NewBuySignalQueue returns an empty queue.
func NewBuySignalQueue() *BuySignalQueue {
	return &BuySignalQueue{q: eventcore.NewQueue[eventcore.SignalInfo]()}
}

// Len reports the number of pending signals.
func (b *BuySignalQueue) Len() int { return b.q.Len() }

// Put enqueues signal.
func (b *BuySignalQueue) Put(signal eventcore.SignalInfo) { b.q.Put(signal) }

// Peek returns the top signal without removing it.
func (b *BuySignalQueue) Peek() (eventcore.SignalInfo, error) { return b.q.Peek() }

// Pop removes and returns the top signal.
func (b *BuySignalQueue) Pop() (eventcore.SignalInfo, error) { return b.q.Pop() }

// ReplaceTop pops the current top and re-enqueues replacement, used to
// mutate the top entry's residual volume/budget in place without
// disturbing the rest of the heap.
func (b *BuySignalQueue) ReplaceTop(replacement eventcore.SignalInfo) error {
	if _, err := b.q.Pop(); err != nil {
		return err
	}
	b.q.Put(replacement)
	return nil
}
