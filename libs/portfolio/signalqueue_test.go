package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"

	"jax-backtest-engine/libs/eventcore"
)

func TestBuySignalQueueOrdersByTypeThenSmallerBudget(t *testing.T) {
	q := NewBuySignalQueue()
	q.Put(eventcore.SignalInfo{ID: "fok", SignalType_: eventcore.SignalFOK, Amount: decimal.NewFromInt(10)})
	q.Put(eventcore.SignalInfo{ID: "tbf-big", SignalType_: eventcore.SignalTBF, Amount: decimal.NewFromInt(100)})
	q.Put(eventcore.SignalInfo{ID: "tbf-small", SignalType_: eventcore.SignalTBF, Amount: decimal.NewFromInt(10)})
	q.Put(eventcore.SignalInfo{ID: "ioc", SignalType_: eventcore.SignalIOC, Amount: decimal.NewFromInt(1)})

	order := []string{}
	for q.Len() > 0 {
		top, err := q.Pop()
		if err != nil {
			t.Fatalf("Pop: %v", err)
		}
		order = append(order, top.ID)
	}

	want := []string{"tbf-small", "tbf-big", "ioc", "fok"}
	for i, id := range want {
		if order[i] != id {
			t.Fatalf("expected pop order %v, got %v", want, order)
		}
	}
}

func TestBuySignalQueueReplaceTop(t *testing.T) {
	q := NewBuySignalQueue()
	q.Put(eventcore.SignalInfo{ID: "first", SignalType_: eventcore.SignalTBF, Amount: decimal.NewFromInt(50)})

	if err := q.ReplaceTop(eventcore.SignalInfo{ID: "resized", SignalType_: eventcore.SignalTBF, Amount: decimal.NewFromInt(20)}); err != nil {
		t.Fatalf("ReplaceTop: %v", err)
	}

	top, err := q.Peek()
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if top.ID != "resized" {
		t.Fatalf("expected the replaced entry at the top, got %q", top.ID)
	}
	if q.Len() != 1 {
		t.Fatalf("expected queue length 1 after replace, got %d", q.Len())
	}
}

func TestBuySignalQueuePeekOnEmptyErrors(t *testing.T) {
	q := NewBuySignalQueue()
	if _, err := q.Peek(); err == nil {
		t.Fatal("expected an error peeking an empty queue")
	}
}
