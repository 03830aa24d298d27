package exchange

import (
	"testing"
	"time"

	"jax-backtest-engine/libs/eventcore"

	"github.com/shopspring/decimal"
)

func dd(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestBookPutRejectsWrongSymbolOrDirection(t *testing.T) {
	book := NewBook("600000", eventcore.Buy)
	book.Put(eventcore.OrderInfo{Symbol: "600001", Direction: eventcore.Buy, Price: dd("10")})
	book.Put(eventcore.OrderInfo{Symbol: "600000", Direction: eventcore.Sell, Price: dd("10")})
	if book.Len() != 0 {
		t.Fatalf("book accepted a mismatched order: len=%d", book.Len())
	}
}

func TestBookCrossBidHigherPriceFirst(t *testing.T) {
	book := NewBook("600000", eventcore.Buy)
	now := time.Now()
	book.Put(eventcore.OrderInfo{ID: "a", Symbol: "600000", Direction: eventcore.Buy, Price: dd("10"), Timestamp: now})
	book.Put(eventcore.OrderInfo{ID: "b", Symbol: "600000", Direction: eventcore.Buy, Price: dd("12"), Timestamp: now})
	book.Put(eventcore.OrderInfo{ID: "c", Symbol: "600000", Direction: eventcore.Buy, Price: dd("9"), Timestamp: now})

	filled := book.Cross(dd("10"))
	if len(filled) != 2 {
		t.Fatalf("expected 2 fills at reference 10, got %d", len(filled))
	}
	if filled[0].ID != "b" || filled[1].ID != "a" {
		t.Fatalf("expected fill order b,a got %v,%v", filled[0].ID, filled[1].ID)
	}
	if book.Len() != 1 {
		t.Fatalf("expected 1 order left resting, got %d", book.Len())
	}
}

func TestBookCancelByID(t *testing.T) {
	book := NewBook("600000", eventcore.Sell)
	book.Put(eventcore.OrderInfo{ID: "x", Symbol: "600000", Direction: eventcore.Sell, Price: dd("11")})
	book.Put(eventcore.OrderInfo{ID: "y", Symbol: "600000", Direction: eventcore.Sell, Price: dd("12")})

	removed := book.Cancel("x")
	if removed != 1 {
		t.Fatalf("expected 1 order removed, got %d", removed)
	}
	if book.Len() != 1 {
		t.Fatalf("expected 1 order left, got %d", book.Len())
	}
}
