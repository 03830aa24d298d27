package eventcore

import (
	"errors"
	"testing"
)

type intRank int

func (i intRank) GreaterThan(other intRank) bool { return i > other }

func TestQueuePopOrder(t *testing.T) {
	q := NewQueue[intRank]()
	for _, v := range []intRank{5, 1, 9, 3, 7} {
		q.Put(v)
	}
	var got []intRank
	for q.Len() > 0 {
		v, err := q.Pop()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, v)
	}
	want := []intRank{9, 7, 5, 3, 1}
	for i, v := range want {
		if got[i] != v {
			t.Fatalf("pop order[%d] = %d, want %d", i, got[i], v)
		}
	}
}

func TestQueuePopEmpty(t *testing.T) {
	q := NewQueue[intRank]()
	if _, err := q.Pop(); !errors.Is(err, ErrEmptyQueue) {
		t.Fatalf("expected ErrEmptyQueue, got %v", err)
	}
}

func TestQueuePopAtMidHeap(t *testing.T) {
	q := NewQueue[intRank]()
	for _, v := range []intRank{5, 1, 9, 3, 7, 2, 8} {
		q.Put(v)
	}
	if _, err := q.PopAt(3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []intRank
	for q.Len() > 0 {
		v, _ := q.Pop()
		got = append(got, v)
	}
	for i := 1; i < len(got); i++ {
		if got[i] > got[i-1] {
			t.Fatalf("heap invariant violated after PopAt: %v", got)
		}
	}
}

func TestQueuePopAtInvalidIndex(t *testing.T) {
	q := NewQueue[intRank]()
	q.Put(intRank(1))
	if _, err := q.PopAt(5); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("expected ErrInvalidIndex, got %v", err)
	}
}
