package clock

import (
	"testing"
	"time"
)

func TestManualClockAdvance(t *testing.T) {
	start := time.Date(2024, 3, 10, 23, 59, 30, 0, time.Local)
	c := NewManualClock(start)

	if got := Today(c); got != "2024-03-10" {
		t.Fatalf("expected 2024-03-10, got %s", got)
	}

	c.Advance(45 * time.Second)

	if got := c.Monotonic(); got != 45*time.Second {
		t.Errorf("expected monotonic 45s, got %v", got)
	}
	if got := Today(c); got != "2024-03-11" {
		t.Errorf("expected 2024-03-11 after midnight, got %s", got)
	}
}

func TestManualClockSetWallKeepsMonotonic(t *testing.T) {
	c := NewManualClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.Local))
	c.Advance(10 * time.Second)

	c.SetWall(time.Date(2024, 3, 9, 12, 0, 0, 0, time.Local))

	if got := c.Monotonic(); got != 10*time.Second {
		t.Errorf("wall clock change moved monotonic reading: %v", got)
	}
	if got := Today(c); got != "2024-03-09" {
		t.Errorf("expected 2024-03-09, got %s", got)
	}
}

func TestRealClockMonotonicNonDecreasing(t *testing.T) {
	c := NewRealClock()
	a := c.Monotonic()
	b := c.Monotonic()
	if b < a {
		t.Fatalf("monotonic reading went backwards: %v then %v", a, b)
	}
}
