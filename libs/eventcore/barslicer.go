package eventcore

import (
	"time"

	"github.com/shopspring/decimal"
)

// OffsetMode selects which canonical intrabar offset schedule SliceBar
// uses to place its four Price events.
type OffsetMode int

const (
	// DayOffsets places events at +570, +690, +780, +900 minutes into the
	// bar, approximating a session of daily bars.
	DayOffsets OffsetMode = iota
	// MinuteOffsets places events at +0, +15, +30, +45 seconds into the
	// bar, approximating a session of minute bars.
	MinuteOffsets
)

var dayModeOffsets = [4]time.Duration{
	570 * time.Minute, 690 * time.Minute, 780 * time.Minute, 900 * time.Minute,
}

var minuteModeOffsets = [4]time.Duration{
	0, 15 * time.Second, 30 * time.Second, 45 * time.Second,
}

// SliceBar is the pure, deterministic bar -> 4 Price events transform. It
// picks ordering (O,L,H,C) when open <= close, else (O,H,L,C), and places
// each price at the next offset in the chosen schedule, approximating the
// intrabar path with a monotone excursion consistent with the observed
// open/close direction.
func SliceBar(bar BarInfo, mode OffsetMode) []PriceInfo {
	offsets := dayModeOffsets
	if mode == MinuteOffsets {
		offsets = minuteModeOffsets
	}

	var seq [4]decimal.Decimal
	if bar.Open.LessThanOrEqual(bar.Close) {
		seq = [4]decimal.Decimal{bar.Open, bar.Low, bar.High, bar.Close}
	} else {
		seq = [4]decimal.Decimal{bar.Open, bar.High, bar.Low, bar.Close}
	}

	var result [4]PriceInfo
	var last *PriceInfo
	for i := 0; i < 4; i++ {
		result[i] = PriceInfo{
			Symbol:    bar.Symbol,
			Timestamp: bar.Timestamp.Add(offsets[i]),
			Current:   seq[i],
		}
		if last != nil {
			prev := last.Current
			result[i].Last = &prev
		}
		last = &result[i]
	}
	return result[:]
}
