package eventcore

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestSliceBarRisingDayMode(t *testing.T) {
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	bar := BarInfo{Symbol: "600000", Timestamp: base, Open: d("10"), High: d("12"), Low: d("9"), Close: d("11")}

	prices := SliceBar(bar, DayOffsets)
	if len(prices) != 4 {
		t.Fatalf("expected 4 price events, got %d", len(prices))
	}
	want := []decimal.Decimal{d("10"), d("9"), d("12"), d("11")}
	for i, p := range prices {
		if !p.Current.Equal(want[i]) {
			t.Fatalf("price[%d] = %s, want %s", i, p.Current, want[i])
		}
	}
	for i := 1; i < 4; i++ {
		if prices[i].Timestamp.Before(prices[i-1].Timestamp) {
			t.Fatalf("timestamps not non-decreasing at index %d", i)
		}
	}
	if !prices[0].Timestamp.Equal(base.Add(570 * time.Minute)) {
		t.Fatalf("unexpected first offset: %v", prices[0].Timestamp)
	}
}

func TestSliceBarFallingMinuteMode(t *testing.T) {
	base := time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC)
	bar := BarInfo{Symbol: "600000", Timestamp: base, Open: d("11"), High: d("12"), Low: d("9"), Close: d("10")}

	prices := SliceBar(bar, MinuteOffsets)
	want := []decimal.Decimal{d("11"), d("12"), d("9"), d("10")}
	for i, p := range prices {
		if !p.Current.Equal(want[i]) {
			t.Fatalf("price[%d] = %s, want %s", i, p.Current, want[i])
		}
	}
	if !prices[3].Timestamp.Equal(base.Add(45 * time.Second)) {
		t.Fatalf("unexpected last offset: %v", prices[3].Timestamp)
	}
}
