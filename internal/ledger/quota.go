package ledger

import (
	"fmt"
	"math"

	"github.com/goodtune/timekeeper/internal/metrics"
)

// Tick adds elapsed seconds of use. Negative input counts as zero. The
// write is batched; a failed write leaves the in-memory value authoritative.
func (l *Ledger) Tick(elapsedSeconds int64) {
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}
	l.rollover()
	l.state.SecondsUsedToday = saturatingAdd(l.state.SecondsUsedToday, elapsedSeconds)
	if elapsedSeconds > 0 {
		metrics.SecondsConsumed.Add(float64(elapsedSeconds))
	}
	l.maybeSave()
}

// RemainingSeconds returns max(0, base + extra*60 - used) for today.
func (l *Ledger) RemainingSeconds() int64 {
	l.rollover()

	extra := clamp(l.state.ExtraMinutesPurchasedToday, 0, MaxExtraMinutesPerDay)
	budget := BaseDailyLimitSeconds
	if bonus, ok := multiply(extra, 60); ok {
		if total, ok := add(BaseDailyLimitSeconds, bonus); ok {
			budget = total
		}
	}

	used := l.state.SecondsUsedToday
	if used < 0 {
		used = 0
	}
	if used >= budget {
		return 0
	}
	return budget - used
}

// AddExtraMinutes grants bonus minutes for today, capped at the daily
// ceiling, and saves immediately.
func (l *Ledger) AddExtraMinutes(minutes int64) error {
	if minutes < 1 || minutes > MaxExtraMinutesPerDay {
		return fmt.Errorf("%w: got %d", ErrInvalidMinutes, minutes)
	}
	l.rollover()
	l.state.ExtraMinutesPurchasedToday = clamp(
		saturatingAdd(l.state.ExtraMinutesPurchasedToday, minutes), 0, MaxExtraMinutesPerDay)
	return l.ForceSave()
}

// SecondsUsedToday returns today's consumed seconds.
func (l *Ledger) SecondsUsedToday() int64 {
	l.rollover()
	return l.state.SecondsUsedToday
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func add(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

func saturatingAdd(a, b int64) int64 {
	sum, ok := add(a, b)
	if !ok {
		if b > 0 {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return sum
}

// multiply reports false when a*b does not divide back cleanly.
func multiply(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	product := a * b
	if product/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	return product, true
}
